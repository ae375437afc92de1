package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// 🏥 Health Handlers
// =============================================================================

// Pinger checks one dependency.
type Pinger func(ctx context.Context) error

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	version string
	checks  map[string]Pinger
	logger  *zap.Logger
}

// NewHealthHandler creates a health handler. checks maps a component name
// (database, cache) to its probe; nil probes are skipped.
func NewHealthHandler(version string, checks map[string]Pinger, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		version: version,
		checks:  checks,
		logger:  logger.With(zap.String("handler", "health")),
	}
}

// Register mounts the probe routes on mux.
func (h *HealthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Live)
	mux.HandleFunc("GET /healthz", h.Live)
	mux.HandleFunc("GET /ready", h.Ready)
	mux.HandleFunc("GET /readyz", h.Ready)
	mux.HandleFunc("GET /version", h.Version)
}

// Live reports process liveness.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": h.version,
	})
}

// Version reports the build version.
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version": h.version,
	})
}

// Ready probes every dependency and reports per-component status. Any
// failing probe turns the response into a 503.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	components := make(map[string]string, len(h.checks))
	healthy := true

	for name, check := range h.checks {
		if check == nil {
			continue
		}
		if err := check(ctx); err != nil {
			components[name] = "unhealthy: " + err.Error()
			healthy = false
			h.logger.Warn("readiness probe failed",
				zap.String("component", name), zap.Error(err))
		} else {
			components[name] = "ok"
		}
	}

	status := http.StatusOK
	overall := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}

	WriteJSON(w, status, map[string]interface{}{
		"status":     overall,
		"version":    h.version,
		"components": components,
	})
}
