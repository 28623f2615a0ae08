package handlers

import (
	"context"
	"net/http"
	"time"

	"service-delivery/internal/logx"
)

const readinessTimeout = 2 * time.Second

// Pinger reports whether a backing dependency answers.
type Pinger func(ctx context.Context) error

// Handlers serves the service-level routes: ping, healthcheck, 404.
type Handlers struct {
	Logger logx.Logger
	ready  Pinger
}

// New returns Handlers. Without checks the healthcheck always reports healthy.
func New(logger logx.Logger, checks ...Pinger) *Handlers {
	if logger == nil {
		logger = logx.Nop()
	}
	h := &Handlers{Logger: logger}
	if len(checks) > 0 {
		h.ready = func(ctx context.Context) error {
			for _, c := range checks {
				if err := c(ctx); err != nil {
					return err
				}
			}
			return nil
		}
	}
	return h
}

// Ping handles GET /ping.
func (h *Handlers) Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(h.Logger, w, r, http.StatusOK, map[string]string{"message": "pong"})
}

// HealthcheckHead answers HEAD /healthcheck with 204, or 503 while storage is unreachable.
func (h *Handlers) HealthcheckHead(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		if err := h.ready(ctx); err != nil {
			h.Logger.Warn("healthcheck failed", logx.Err(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// NotFound is the JSON 404 for unknown routes.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(h.Logger, w, r, http.StatusNotFound, "route not found", "not_found")
}
