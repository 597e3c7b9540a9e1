package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/api/response"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/apperr"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/cache"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/repository"
)

const healthCheckTimeout = 5 * time.Second

// HealthChecker provides health check functionality
type HealthChecker struct {
	store repository.Store
	cache *cache.Redis
}

// NewHealthChecker creates a new health checker. cache may be nil.
func NewHealthChecker(store repository.Store, cache *cache.Redis) *HealthChecker {
	return &HealthChecker{
		store: store,
		cache: cache,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

// Health handles GET /health
func (h *HealthChecker) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	services := make(map[string]string)
	overallStatus := "healthy"

	if err := h.store.Ping(ctx); err != nil {
		services["database"] = "unhealthy"
		overallStatus = "degraded"
	} else {
		services["database"] = "healthy"
	}

	if h.cache != nil {
		if err := h.cache.Health(ctx); err != nil {
			services["redis"] = "unhealthy"
			overallStatus = "degraded"
		} else {
			services["redis"] = "healthy"
		}
	}

	resp := HealthResponse{
		Status:    overallStatus,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  services,
	}

	statusCode := http.StatusOK
	if overallStatus != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	response.JSON(w, statusCode, resp)
}

// LivenessProbe handles GET /health/live
func LivenessProbe(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{
		"status": "alive",
	})
}

// ReadinessProbe handles GET /health/ready
func (h *HealthChecker) ReadinessProbe(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		response.Error(w, r, apperr.Unavailable("Database not ready").Wrap(err))
		return
	}

	if h.cache != nil {
		if err := h.cache.Health(ctx); err != nil {
			response.Error(w, r, apperr.Unavailable("Redis not ready").Wrap(err))
			return
		}
	}

	response.JSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
