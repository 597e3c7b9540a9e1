package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/api/response"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/cache"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/config"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/repository"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/workflow"
)

// StatusHandler reports how the running instance is wired
type StatusHandler struct {
	store     repository.Store
	cache     *cache.Redis
	cfg       *config.Config
	startTime time.Time
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(store repository.Store, cache *cache.Redis, cfg *config.Config) *StatusHandler {
	return &StatusHandler{
		store:     store,
		cache:     cache,
		cfg:       cfg,
		startTime: time.Now(),
	}
}

// WorkflowStatus describes one generation webhook
type WorkflowStatus struct {
	Configured bool   `json:"configured"`
	Timeout    string `json:"timeout,omitempty"`
}

// SystemStatusResponse represents the full system status
type SystemStatusResponse struct {
	Status      string                           `json:"status"`
	Uptime      string                           `json:"uptime"`
	Environment string                           `json:"environment"`
	Timestamp   string                           `json:"timestamp"`
	Store       string                           `json:"store"`
	Users       int                              `json:"users"`
	Services    ServiceStatusResponse            `json:"services"`
	Workflows   map[workflow.Mode]WorkflowStatus `json:"workflows"`
	Events      string                           `json:"events"`
	GoogleLogin bool                             `json:"googleLogin"`
}

// ServiceStatusResponse represents service health
type ServiceStatusResponse struct {
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

// GetStatus handles GET /api/admin/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := SystemStatusResponse{
		Status:      "operational",
		Uptime:      time.Since(h.startTime).Round(time.Second).String(),
		Environment: h.cfg.Env,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Store:       h.cfg.StoreDriver,
		Services: ServiceStatusResponse{
			Database: "healthy",
			Redis:    "disabled",
		},
		Workflows:   make(map[workflow.Mode]WorkflowStatus, len(workflow.Modes)),
		Events:      "disabled",
		GoogleLogin: h.cfg.GoogleEnabled(),
	}

	if err := h.store.Ping(ctx); err != nil {
		resp.Services.Database = "unhealthy"
		resp.Status = "degraded"
	} else if _, total, err := h.store.Users().List(ctx, 1, 0); err == nil {
		resp.Users = total
	}

	if h.cache != nil {
		resp.Services.Redis = "healthy"
		if err := h.cache.Health(ctx); err != nil {
			resp.Services.Redis = "unhealthy"
			resp.Status = "degraded"
		}
	}

	if len(h.cfg.KafkaBrokers) > 0 {
		resp.Events = "kafka:" + h.cfg.KafkaTopic
	}

	endpoints := h.cfg.WorkflowEndpoints()
	for _, mode := range workflow.Modes {
		ep, ok := endpoints[mode]
		status := WorkflowStatus{Configured: ok}
		if ok {
			status.Timeout = ep.Timeout.String()
		}
		resp.Workflows[mode] = status
	}

	response.Success(w, resp)
}
