package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordGeneration(t *testing.T) {
	m := New()

	m.RecordGeneration("image-edit", OutcomeSuccess, 2*time.Second)
	m.RecordGeneration("image-edit", OutcomeTimeout, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.GenerationsTotal.WithLabelValues("image-edit", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GenerationsTotal.WithLabelValues("image-edit", OutcomeTimeout)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CreditsConsumed))
}

func TestRecordPlanChange(t *testing.T) {
	m := New()
	m.RecordPlanChange("pro", "admin")
	m.RecordPlanChange("pro", "admin")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PlanChangesTotal.WithLabelValues("pro", "admin")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordHTTP("GET", "/", 200, time.Millisecond)
	m.RecordGeneration("image-edit", OutcomeSuccess, time.Second)
	m.RecordPlanChange("pro", "self")
	m.RecordSignup()
}

func TestHandler(t *testing.T) {
	m := New()
	m.RecordHTTP(http.MethodGet, "/api/plans", http.StatusOK, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `fashionx_http_requests_total{method="GET",path="/api/plans",status="200"} 1`)
}
