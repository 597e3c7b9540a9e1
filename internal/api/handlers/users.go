package handlers

import (
	"net/http"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/api/request"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/api/response"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/apperr"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/auth"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/models"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/service"
)

// UserHandler serves the caller's own account
type UserHandler struct {
	accounts *service.AccountService
	cookies  auth.CookieConfig
}

// NewUserHandler creates a new user handler
func NewUserHandler(accounts *service.AccountService, cookies auth.CookieConfig) *UserHandler {
	return &UserHandler{
		accounts: accounts,
		cookies:  cookies,
	}
}

// Me returns the caller's profile
// GET /api/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.Profile(r.Context(), auth.GetUserID(r.Context()))
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.Success(w, user)
}

// History returns the caller's generations
// GET /api/users/me/history?type=image|video
func (h *UserHandler) History(w http.ResponseWriter, r *http.Request) {
	var kind models.MediaKind
	switch request.GetQueryString(r, "type", string(models.MediaImage)) {
	case string(models.MediaImage):
		kind = models.MediaImage
	case string(models.MediaVideo):
		kind = models.MediaVideo
	default:
		response.Error(w, r, apperr.Validation("type must be image or video"))
		return
	}

	list, err := h.accounts.History(r.Context(), auth.GetUserID(r.Context()), kind)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.Success(w, map[string]interface{}{
		"type":        kind,
		"generations": list,
	})
}

// Terms records acceptance of the terms of service
// POST /api/users/me/terms
func (h *UserHandler) Terms(w http.ResponseWriter, r *http.Request) {
	var in service.TermsInput
	if err := request.Decode(r, &in); err != nil {
		response.Error(w, r, err)
		return
	}

	user, err := h.accounts.AcceptTerms(r.Context(), auth.GetUserID(r.Context()), in)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.SuccessMessage(w, "Terms accepted", user)
}

// Delete deactivates the caller's account and signs them out
// DELETE /api/users/me
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.Deactivate(r.Context(), auth.GetUserID(r.Context())); err != nil {
		response.Error(w, r, err)
		return
	}

	h.cookies.ClearTokenCookie(w)
	response.SuccessMessage(w, "Account deactivated", nil)
}

// Payments lists the caller's payments
// GET /api/payments
func (h *UserHandler) Payments(w http.ResponseWriter, r *http.Request) {
	list, err := h.accounts.Payments(r.Context(), auth.GetUserID(r.Context()))
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.Success(w, list)
}
