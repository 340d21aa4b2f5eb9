package api

import (
	"context"
	"net/http"
	"time"

	"github.com/neuroserve/neuroserve/internal/cache"
	"github.com/neuroserve/neuroserve/internal/observability"
)

const (
	readyProbeKey     = "ready:probe"
	readyCheckTimeout = 2 * time.Second
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	logger *observability.Logger
	db     Pinger
	cache  cache.Client
}

// NewHealthHandler creates a new health handler. db and c may be nil.
func NewHealthHandler(logger *observability.Logger, db Pinger, c cache.Client) *HealthHandler {
	if logger == nil {
		logger = observability.Nop()
	}
	return &HealthHandler{logger: logger, db: db, cache: c}
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "neuroserve"})
}

// Ready handles GET /ready. It pings the database and the cache, then
// round-trips a cache key.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
	defer cancel()

	checks := map[string]string{}
	ready := true

	if h.db != nil {
		checks["database"] = "ok"
		if err := h.db.PingContext(ctx); err != nil {
			checks["database"] = err.Error()
			ready = false
		}
	}

	if h.cache != nil {
		checks["cache"] = "ok"
		if err := h.cacheRoundTrip(ctx); err != nil {
			checks["cache"] = err.Error()
			ready = false
		}
	}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not_ready", http.StatusServiceUnavailable
		h.logger.Warn().Interface("checks", checks).Msg("Readiness check failed")
	}
	writeJSON(w, code, map[string]any{"status": status, "checks": checks})
}

func (h *HealthHandler) cacheRoundTrip(ctx context.Context) error {
	if err := h.cache.Ping(ctx); err != nil {
		return err
	}
	if err := h.cache.Set(ctx, readyProbeKey, []byte("1"), time.Minute); err != nil {
		return err
	}
	_, err := h.cache.Get(ctx, readyProbeKey)
	return err
}
