// Package metrics exports Prometheus metrics for the API
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fashionx"

// Generation outcomes
const (
	OutcomeSuccess      = "success"
	OutcomeTimeout      = "timeout"
	OutcomeUnavailable  = "unavailable"
	OutcomeUpstream     = "upstream_error"
	OutcomeInsufficient = "insufficient_credits"
	OutcomeBusy         = "busy"
)

// Metrics holds every collector. Each instance owns its registry so tests
// can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	GenerationsTotal   *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	CreditsConsumed    prometheus.Counter
	PlanChangesTotal   *prometheus.CounterVec
	SignupsTotal       prometheus.Counter
}

// New creates the collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 180},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),
		GenerationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generations_total",
				Help:      "Generation requests by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		GenerationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_duration_seconds",
				Help:      "Workflow call duration in seconds",
				Buckets:   []float64{1, 5, 10, 20, 30, 60, 90, 120, 180},
			},
			[]string{"mode"},
		),
		CreditsConsumed: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "credits_consumed_total",
				Help:      "Credits charged for successful generations",
			},
		),
		PlanChangesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "plan_changes_total",
				Help:      "Plan changes by target plan and source",
			},
			[]string{"plan", "source"},
		),
		SignupsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signups_total",
				Help:      "Accounts created",
			},
		),
	}
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTP records one finished request
func (m *Metrics) RecordHTTP(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// RecordGeneration records the outcome of one generation request
func (m *Metrics) RecordGeneration(mode, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.GenerationsTotal.WithLabelValues(mode, outcome).Inc()
	if elapsed > 0 {
		m.GenerationDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
	}
	if outcome == OutcomeSuccess {
		m.CreditsConsumed.Inc()
	}
}

// RecordPlanChange records a plan change. source is "self" or "admin".
func (m *Metrics) RecordPlanChange(plan, source string) {
	if m == nil {
		return
	}
	m.PlanChangesTotal.WithLabelValues(plan, source).Inc()
}

// RecordSignup records a new account
func (m *Metrics) RecordSignup() {
	if m == nil {
		return
	}
	m.SignupsTotal.Inc()
}
