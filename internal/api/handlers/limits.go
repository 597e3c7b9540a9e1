package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/api/response"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/auth"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/models"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/ratelimit"
)

// LimitsHandler reports generation rate limits and usage
type LimitsHandler struct {
	limiter *ratelimit.RateLimiter
}

// NewLimitsHandler creates a new limits handler. limiter may be nil when
// Redis is not configured; generation is then not rate limited.
func NewLimitsHandler(limiter *ratelimit.RateLimiter) *LimitsHandler {
	return &LimitsHandler{limiter: limiter}
}

// LimitsResponse is the body of GET /api/users/me/limits
type LimitsResponse struct {
	Plan    models.Plan           `json:"plan"`
	Limited bool                  `json:"limited"`
	Usage   *ratelimit.UsageStats `json:"usage,omitempty"`
}

// Me returns the caller's generation limits
// GET /api/users/me/limits
func (h *LimitsHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	plan := models.PlanNone
	if user != nil {
		plan = user.Plan
	}

	resp := LimitsResponse{Plan: plan}
	if h.limiter == nil {
		response.Success(w, resp)
		return
	}
	resp.Limited = true

	stats, err := h.limiter.GetUsageStats(r.Context(), auth.GetUserID(r.Context()), plan)
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("failed to read rate limit usage")
		limit := h.limiter.GetLimitForPlan(plan)
		stats = &ratelimit.UsageStats{
			Plan:                plan,
			LimitPerMinute:      limit.RequestsPerMinute,
			LimitPerDay:         limit.RequestsPerDay,
			RemainingThisMinute: limit.RequestsPerMinute,
			RemainingToday:      limit.RequestsPerDay,
		}
	}
	resp.Usage = stats

	response.Success(w, resp)
}
