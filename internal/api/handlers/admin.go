package handlers

import (
	"net/http"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/api/request"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/api/response"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/auth"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/service"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// AdminHandler serves the admin endpoints. Routes are mounted behind
// RequireRole(admin).
type AdminHandler struct {
	admin *service.AdminService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// ListUsers returns a page of users
// GET /api/admin/users?limit=&offset=
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit := request.GetQueryIntWithRange(r, "limit", defaultPageSize, 1, maxPageSize)
	offset := request.GetQueryIntWithRange(r, "offset", 0, 0, 1<<30)

	users, total, err := h.admin.ListUsers(r.Context(), limit, offset)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.SuccessWithPagination(w, users, response.NewPagination(total, limit, offset))
}

// GetUser returns one user
// GET /api/admin/users/{id}
func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.admin.GetUser(r.Context(), request.GetURLParam(r, "id"))
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.Success(w, user)
}

// UpdateCredits overrides a user's credit counters
// PATCH /api/admin/users/{id}/credits
func (h *AdminHandler) UpdateCredits(w http.ResponseWriter, r *http.Request) {
	var in service.CreditsOverride
	if err := request.Decode(r, &in); err != nil {
		response.Error(w, r, err)
		return
	}

	user, err := h.admin.UpdateCredits(r.Context(), auth.GetUserID(r.Context()), request.GetURLParam(r, "id"), in)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.SuccessMessage(w, "Credits updated", user)
}

// UpdatePlan changes a user's plan
// PATCH /api/admin/users/{id}/plan
func (h *AdminHandler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	var in service.PlanOverride
	if err := request.Decode(r, &in); err != nil {
		response.Error(w, r, err)
		return
	}

	user, err := h.admin.UpdatePlan(r.Context(), auth.GetUserID(r.Context()), request.GetURLParam(r, "id"), in)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.SuccessMessage(w, "Plan updated", user)
}

// UpdateStatus activates, deactivates, blocks or unblocks a user
// PATCH /api/admin/users/{id}/status
func (h *AdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var in service.StatusOverride
	if err := request.Decode(r, &in); err != nil {
		response.Error(w, r, err)
		return
	}

	user, err := h.admin.UpdateStatus(r.Context(), auth.GetUserID(r.Context()), request.GetURLParam(r, "id"), in)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.SuccessMessage(w, "Status updated", user)
}

// UpdatePaymentStatus moves a payment to a new status
// PATCH /api/admin/payments/{id}/status
func (h *AdminHandler) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	var in service.PaymentStatusInput
	if err := request.Decode(r, &in); err != nil {
		response.Error(w, r, err)
		return
	}

	payment, err := h.admin.UpdatePaymentStatus(r.Context(), auth.GetUserID(r.Context()), request.GetURLParam(r, "id"), in)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.SuccessMessage(w, "Payment updated", payment)
}
