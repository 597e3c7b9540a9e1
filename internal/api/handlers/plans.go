package handlers

import (
	"net/http"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/api/request"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/api/response"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/auth"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/models"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/service"
)

// PlanHandler handles the plan catalog and plan selection
type PlanHandler struct {
	plans *service.PlanService
}

// NewPlanHandler creates a new plan handler
func NewPlanHandler(plans *service.PlanService) *PlanHandler {
	return &PlanHandler{plans: plans}
}

// List returns the plan catalog. Signed-in callers see their plan marked.
// GET /api/plans
func (h *PlanHandler) List(w http.ResponseWriter, r *http.Request) {
	var current models.Plan
	if user := auth.GetUser(r.Context()); user != nil {
		current = user.Plan
	}
	response.Success(w, h.plans.Catalog(current))
}

// Select changes the caller's plan
// POST /api/plans/select
func (h *PlanHandler) Select(w http.ResponseWriter, r *http.Request) {
	var in service.SelectPlanInput
	if err := request.Decode(r, &in); err != nil {
		response.Error(w, r, err)
		return
	}

	state, err := h.plans.Select(r.Context(), auth.GetUserID(r.Context()), in)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.SuccessMessage(w, "Plan updated successfully", state)
}

// Current returns the caller's plan and credits
// GET /api/plans/current
func (h *PlanHandler) Current(w http.ResponseWriter, r *http.Request) {
	state, err := h.plans.Current(r.Context(), auth.GetUserID(r.Context()))
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.Success(w, state)
}
