package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/api/response"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/apperr"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/auth"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/cache"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/models"
)

// Limit defines generation rate limits for a plan
type Limit struct {
	RequestsPerMinute int `json:"requestsPerMinute"`
	RequestsPerDay    int `json:"requestsPerDay"` // -1 means unlimited
}

// DefaultLimits defines the default generation limits per plan.
// Users without a plan fall under PlanNone.
var DefaultLimits = map[models.Plan]Limit{
	models.PlanNone:       {RequestsPerMinute: 2, RequestsPerDay: 10},
	models.PlanFree:       {RequestsPerMinute: 3, RequestsPerDay: 20},
	models.PlanBasic:      {RequestsPerMinute: 6, RequestsPerDay: 200},
	models.PlanPro:        {RequestsPerMinute: 12, RequestsPerDay: 1000},
	models.PlanEnterprise: {RequestsPerMinute: 30, RequestsPerDay: -1},
}

// RateLimitInfo contains rate limit information for a response
type RateLimitInfo struct {
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	Reset     int64 `json:"reset"` // Unix timestamp
}

// RateLimiter throttles generation requests per user using Redis
type RateLimiter struct {
	cache  *cache.Redis
	limits map[models.Plan]Limit
	log    zerolog.Logger
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cache *cache.Redis, log zerolog.Logger) *RateLimiter {
	return NewRateLimiterWithLimits(cache, DefaultLimits, log)
}

// NewRateLimiterWithLimits creates a rate limiter with custom limits
func NewRateLimiterWithLimits(cache *cache.Redis, limits map[models.Plan]Limit, log zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		cache:  cache,
		limits: limits,
		log:    log.With().Str("component", "ratelimit").Logger(),
	}
}

// Allow checks the per-minute window, then the per-day window
func (r *RateLimiter) Allow(ctx context.Context, identifier string, plan models.Plan) (bool, error) {
	limit := r.GetLimitForPlan(plan)

	allowed, _, err := r.checkMinuteLimit(ctx, minuteKey(identifier), limit.RequestsPerMinute)
	if err != nil || !allowed {
		return false, err
	}

	if limit.RequestsPerDay > 0 {
		allowed, _, err = r.checkDayLimit(ctx, dayKey(identifier), limit.RequestsPerDay)
		if err != nil || !allowed {
			return false, err
		}
	}

	return true, nil
}

// GetRemaining returns the remaining requests for an identifier
func (r *RateLimiter) GetRemaining(ctx context.Context, identifier string, plan models.Plan) (*RateLimitInfo, error) {
	limit := r.GetLimitForPlan(plan)

	_, remaining, err := r.getMinuteRemaining(ctx, minuteKey(identifier), limit.RequestsPerMinute)
	if err != nil {
		return nil, err
	}

	if limit.RequestsPerDay > 0 {
		_, dayRemaining, err := r.getDayRemaining(ctx, dayKey(identifier), limit.RequestsPerDay)
		if err != nil {
			return nil, err
		}
		// Use the more restrictive remaining count
		if dayRemaining < remaining {
			remaining = dayRemaining
		}
	}

	return &RateLimitInfo{
		Limit:     limit.RequestsPerMinute,
		Remaining: remaining,
		Reset:     time.Now().Truncate(time.Minute).Add(time.Minute).Unix(),
	}, nil
}

// Middleware enforces the caller's plan limits. It must run after
// authentication. Redis failures let the request through.
//
// Callers without a plan or without credits are passed on untouched: the
// generation handler rejects them, and those attempts never use a slot.
func (r *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ctx := req.Context()

		user := auth.GetUser(ctx)
		if user == nil || !chargeable(user) {
			next.ServeHTTP(w, req)
			return
		}

		allowed, err := r.Allow(ctx, user.ID, user.Plan)
		if err != nil {
			r.log.Warn().Err(err).Str("user_id", user.ID).Msg("rate limiter unavailable, allowing request")
			next.ServeHTTP(w, req)
			return
		}

		info, err := r.GetRemaining(ctx, user.ID, user.Plan)
		if err == nil {
			setRateLimitHeaders(w, info)
		}

		if !allowed {
			retryAfter := int64(60)
			if info != nil {
				retryAfter = info.Reset - time.Now().Unix()
			}
			w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			response.Error(w, req, apperr.RateLimited("Generation limit reached for your plan. Please try again later."))
			return
		}

		next.ServeHTTP(w, req)
	})
}

func chargeable(u *models.User) bool {
	return u.Plan != models.PlanNone && u.Credits.Balance > 0
}

func setRateLimitHeaders(w http.ResponseWriter, info *RateLimitInfo) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.Reset, 10))
}

// GetLimitForPlan returns the limit for a plan
func (r *RateLimiter) GetLimitForPlan(plan models.Plan) Limit {
	limit, ok := r.limits[plan]
	if !ok {
		return r.limits[models.PlanNone]
	}
	return limit
}

func minuteKey(identifier string) string {
	return cache.Key("ratelimit", "generate", "minute", identifier)
}

func dayKey(identifier string) string {
	return cache.Key("ratelimit", "generate", "day", identifier)
}
