package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/apperr"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/events"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/models"
)

func TestSelect_PaidPlanAddsCreditsAndRecordsPayment(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "buyer@example.com", models.PlanFree, oneCreditLeft())

	state, err := env.plans.Select(context.Background(), user.ID, SelectPlanInput{Plan: " Basic ", PaymentID: "pay_123", OrderID: "order_9"})
	require.NoError(t, err)

	assert.Equal(t, models.PlanBasic, state.Plan)
	assert.Equal(t, 499, state.Price)
	assert.Equal(t, 53, state.Credits.TotalPurchased)
	assert.Equal(t, 51, state.Credits.Balance)
	require.NotNil(t, state.PlanActivatedAt)
	assert.Equal(t, fixedNow, *state.PlanActivatedAt)

	require.NotNil(t, state.Payment)
	assert.Equal(t, models.PaymentCaptured, state.Payment.Status)
	assert.Equal(t, "order_9", state.Payment.OrderID)
	assert.Equal(t, 499, state.Payment.Amount)
	assert.Equal(t, "INR", state.Payment.Currency)

	payments, err := env.store.Payments().ListByUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)

	assert.Len(t, env.recorder.OfType(events.TypePlanChanged), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.PlanChangesTotal.WithLabelValues("basic", "self")))
}

func TestSelect_IsAdditive(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "again@example.com", models.PlanFree, models.Credits{Balance: 3, TotalPurchased: 3})

	_, err := env.plans.Select(context.Background(), user.ID, SelectPlanInput{Plan: "pro"})
	require.NoError(t, err)
	state, err := env.plans.Select(context.Background(), user.ID, SelectPlanInput{Plan: "pro"})
	require.NoError(t, err)

	assert.Equal(t, 403, state.Credits.TotalPurchased)
	assert.Equal(t, 403, state.Credits.Balance)
	assert.Equal(t, models.PaymentCreated, state.Payment.Status)
	assert.NotEmpty(t, state.Payment.OrderID)
}

func TestSelect_ActivationNeverMovesBackwards(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "future@example.com", models.PlanFree, models.Credits{Balance: 3, TotalPurchased: 3})

	future := fixedNow.Add(48 * time.Hour)
	_, err := env.store.Users().Modify(context.Background(), user.ID, func(u *models.User) error {
		u.PlanActivatedAt = &future
		return nil
	})
	require.NoError(t, err)

	state, err := env.plans.Select(context.Background(), user.ID, SelectPlanInput{Plan: "basic"})
	require.NoError(t, err)
	assert.Equal(t, future, *state.PlanActivatedAt)
}

func TestSelect_Rejections(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "user@example.com", models.PlanFree, oneCreditLeft())

	_, err := env.plans.Select(context.Background(), user.ID, SelectPlanInput{Plan: "gold"})
	requireAppError(t, err, http.StatusBadRequest, apperr.CodeInvalidPlan)

	_, err = env.generation.Generate(context.Background(), user.ID, "image-edit", imageEdit)
	require.NoError(t, err)

	_, err = env.plans.Select(context.Background(), user.ID, SelectPlanInput{Plan: "free"})
	requireAppError(t, err, http.StatusBadRequest, apperr.CodeValidation)

	_, err = env.plans.Select(context.Background(), "missing", SelectPlanInput{Plan: "pro"})
	requireAppError(t, err, http.StatusUnauthorized, apperr.CodeUserNotFound)
}

func TestSelect_FreeBeforeAnyGeneration(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "fresh@example.com", models.PlanNone, models.Credits{})

	state, err := env.plans.Select(context.Background(), user.ID, SelectPlanInput{Plan: "free"})
	require.NoError(t, err)
	assert.Equal(t, models.PlanFree, state.Plan)
	assert.Equal(t, 3, state.Credits.Balance)
	assert.Nil(t, state.Payment)
}

func TestCurrent(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "cur@example.com", models.PlanPro, models.Credits{Balance: -4, TotalPurchased: 2, TotalUsed: 6})

	state, err := env.plans.Current(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanPro, state.Plan)
	assert.Equal(t, 0, state.Credits.Balance)
	catalog := env.plans.Catalog(models.PlanPro)
	require.Len(t, catalog, 4)
	for _, p := range catalog {
		assert.Equal(t, p.Name == models.PlanPro, p.Current, p.Name)
	}
	for _, p := range env.plans.Catalog(models.PlanNone) {
		assert.False(t, p.Current)
	}
}
