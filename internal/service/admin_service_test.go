package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/apperr"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/events"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/models"
)

func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }

func TestAdminUpdatePlan_GrantsOnTopOfUsage(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "target@example.com", models.PlanFree, oneCreditLeft())

	updated, err := env.admin.UpdatePlan(context.Background(), "admin-1", user.ID, PlanOverride{Plan: "pro"})
	require.NoError(t, err)

	assert.Equal(t, models.PlanPro, updated.Plan)
	assert.Equal(t, 203, updated.Credits.TotalPurchased)
	assert.Equal(t, 201, updated.Credits.Balance)
	assert.Equal(t, 1499, updated.PlanPrice)

	sent := env.recorder.OfType(events.TypePlanChanged)
	require.Len(t, sent, 1)
	assert.Contains(t, string(sent[0].Data), `"byAdmin":true`)
	assert.Contains(t, string(sent[0].Data), `"direction":"upgrade"`)
}

func TestAdminUpdatePlan_PriceOverride(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "target@example.com", models.PlanFree, oneCreditLeft())

	updated, err := env.admin.UpdatePlan(context.Background(), "admin-1", user.ID, PlanOverride{Plan: "enterprise", Price: intPtr(0)})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.PlanPrice)

	_, err = env.admin.UpdatePlan(context.Background(), "admin-1", user.ID, PlanOverride{Plan: "platinum"})
	requireAppError(t, err, http.StatusBadRequest, apperr.CodeInvalidPlan)

	_, err = env.admin.UpdatePlan(context.Background(), "admin-1", "missing", PlanOverride{Plan: "pro"})
	requireAppError(t, err, http.StatusUnauthorized, apperr.CodeUserNotFound)
}

func TestAdminUpdateCredits(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "c@example.com", models.PlanBasic, models.Credits{Balance: 10, TotalPurchased: 50, TotalUsed: 40})

	updated, err := env.admin.UpdateCredits(context.Background(), "admin-1", user.ID, CreditsOverride{Balance: intPtr(99)})
	require.NoError(t, err)
	assert.Equal(t, 99, updated.Credits.Balance)
	assert.Equal(t, 50, updated.Credits.TotalPurchased)

	updated, err = env.admin.UpdateCredits(context.Background(), "admin-1", user.ID, CreditsOverride{TotalPurchased: intPtr(30)})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Credits.Balance)

	updated, err = env.admin.UpdateCredits(context.Background(), "admin-1", user.ID, CreditsOverride{ImagesGenerated: intPtr(7)})
	require.NoError(t, err)
	assert.Equal(t, 7, updated.Credits.ImagesGenerated)
	assert.Equal(t, 0, updated.Credits.Balance)

	_, err = env.admin.UpdateCredits(context.Background(), "admin-1", user.ID, CreditsOverride{TotalUsed: intPtr(-1)})
	requireAppError(t, err, http.StatusBadRequest, apperr.CodeValidation)
}

func TestAdminUpdateStatus(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "s@example.com", models.PlanFree, oneCreditLeft())

	updated, err := env.admin.UpdateStatus(context.Background(), "admin-1", user.ID, StatusOverride{IsBlocked: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, updated.IsBlocked)
	assert.True(t, updated.IsActive)

	_, err = env.admin.UpdateStatus(context.Background(), "admin-1", user.ID, StatusOverride{})
	requireAppError(t, err, http.StatusBadRequest, apperr.CodeValidation)

	_, err = env.admin.UpdateStatus(context.Background(), user.ID, user.ID, StatusOverride{IsActive: boolPtr(false)})
	requireAppError(t, err, http.StatusBadRequest, apperr.CodeValidation)
}

func TestAdminUpdatePaymentStatus(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "p@example.com", models.PlanFree, oneCreditLeft())

	state, err := env.plans.Select(context.Background(), user.ID, SelectPlanInput{Plan: "basic"})
	require.NoError(t, err)
	paymentID := state.Payment.ID

	p, err := env.admin.UpdatePaymentStatus(context.Background(), "admin-1", paymentID, PaymentStatusInput{Status: "captured"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCaptured, p.Status)

	_, err = env.admin.UpdatePaymentStatus(context.Background(), "admin-1", paymentID, PaymentStatusInput{Status: "authorized"})
	requireAppError(t, err, http.StatusBadRequest, apperr.CodeValidation)

	_, err = env.admin.UpdatePaymentStatus(context.Background(), "admin-1", paymentID, PaymentStatusInput{Status: "paid"})
	requireAppError(t, err, http.StatusBadRequest, apperr.CodeValidation)

	_, err = env.admin.UpdatePaymentStatus(context.Background(), "admin-1", "missing", PaymentStatusInput{Status: "failed"})
	requireAppError(t, err, http.StatusNotFound, apperr.CodeNotFound)
}

func TestAdminListUsers(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "a@example.com", models.PlanFree, oneCreditLeft())
	env.seedUser(t, "b@example.com", models.PlanPro, models.Credits{Balance: -2})

	users, total, err := env.admin.ListUsers(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, users, 2)
	for _, u := range users {
		assert.GreaterOrEqual(t, u.Credits.Balance, 0)
	}
}
