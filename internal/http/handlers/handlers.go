package handlers

import (
	"context"
	"net/http"
	"time"

	"delivery-simulator/internal/logx"
)

const storeTimeout = 2 * time.Second

// Handlers holds HTTP handlers dependencies.
type Handlers struct {
	Logger logx.Logger
	stats  statsReader
	health pinger
}

// New creates a Handlers instance. A nil logger is replaced with a no-op one.
func New(logger logx.Logger, stats statsReader, health pinger) *Handlers {
	if logger == nil {
		logger = logx.Nop()
	}
	return &Handlers{Logger: logger, stats: stats, health: health}
}

// Ping handles GET /ping and returns 200 with {"message":"pong"}.
func (h *Handlers) Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(h.Logger, w, r, http.StatusOK, map[string]string{"message": "pong"})
}

// HealthcheckHead handles HEAD /healthcheck: 200 when the store answers, 503 otherwise.
func (h *Handlers) HealthcheckHead(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	if err := h.health.Ping(ctx); err != nil {
		h.Logger.Warn("healthcheck failed",
			logx.String("request_id", reqID(r.Context())),
			logx.Err(err),
		)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Stats handles GET /stats and returns the current store snapshot.
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		writeError(h.Logger, w, r, http.StatusServiceUnavailable, "stats unavailable")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	snap, err := h.stats.Snapshot(ctx)
	if err != nil {
		h.Logger.Error("read snapshot failed",
			logx.String("request_id", reqID(r.Context())),
			logx.Err(err),
		)
		writeError(h.Logger, w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(h.Logger, w, r, http.StatusOK, snap)
}

// NotFound returns a JSON 404 error for unknown routes.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(h.Logger, w, r, http.StatusNotFound, "not found")
}
