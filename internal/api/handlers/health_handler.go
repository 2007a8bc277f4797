package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/isdelr/cubeforge-be/internal/httpx"
	"github.com/rs/zerolog/log"
)

// HealthHandler reports whether the service can reach its store.
type HealthHandler struct {
	check   func(context.Context) error
	timeout time.Duration
}

// NewHealthHandler creates a new HealthHandler around a store check.
func NewHealthHandler(check func(context.Context) error, timeout time.Duration) *HealthHandler {
	return &HealthHandler{check: check, timeout: timeout}
}

// Serve handles GET /healthz.
func (h *HealthHandler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.check(ctx); err != nil {
		log.Warn().Err(err).Msg("Health check failed")
		httpx.WriteJSON(w, http.StatusServiceUnavailable, httpx.ErrorResponse{Error: "storage_unavailable", Detail: "Storage temporarily unavailable"})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
