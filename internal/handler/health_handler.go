package handler

import (
	"context"
	"net/http"
	"time"

	"portfolio-be/pkg/logger"
)

// HealthChecker is anything that can report its own reachability
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Health states
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	primary   map[string]HealthChecker
	auxiliary map[string]HealthChecker
	version   string
	logger    *logger.Logger
}

// NewHealthHandler creates a new health handler. A failing primary check
// answers 503; a failing auxiliary check only reports the instance degraded.
func NewHealthHandler(primary, auxiliary map[string]HealthChecker, version string, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		primary:   primary,
		auxiliary: auxiliary,
		version:   version,
		logger:    log,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status       string            `json:"status"`
	Timestamp    time.Time         `json:"timestamp"`
	Version      string            `json:"version"`
	Service      string            `json:"service"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:       StatusHealthy,
		Timestamp:    time.Now().UTC(),
		Version:      h.version,
		Service:      "portfolio-be",
		Dependencies: make(map[string]string, len(h.primary)+len(h.auxiliary)),
	}
	status := http.StatusOK

	if !h.runChecks(ctx, h.auxiliary, response.Dependencies) {
		response.Status = StatusDegraded
	}
	if !h.runChecks(ctx, h.primary, response.Dependencies) {
		response.Status = StatusUnhealthy
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, response, h.logger)
}

// runChecks records each check's state in deps and reports whether all passed
func (h *HealthHandler) runChecks(ctx context.Context, checks map[string]HealthChecker, deps map[string]string) bool {
	ok := true
	for name, check := range checks {
		if err := check.Health(ctx); err != nil {
			h.logger.WithError(err).WithField("dependency", name).Warn("Health check failed")
			deps[name] = StatusUnhealthy
			ok = false
			continue
		}
		deps[name] = StatusHealthy
	}
	return ok
}
