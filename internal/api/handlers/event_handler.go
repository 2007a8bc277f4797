package handlers

import (
	"net/http"
	"strconv"

	"github.com/isdelr/cubeforge-be/internal/auth"
	"github.com/isdelr/cubeforge-be/internal/httpx"
	"github.com/isdelr/cubeforge-be/internal/models"
	"github.com/isdelr/cubeforge-be/internal/services"
	"github.com/rs/zerolog/log"
)

const defaultEventLimit = 20

// EventHandler serves the caller's audit trail.
type EventHandler struct {
	service services.EventServiceProvider
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(service services.EventServiceProvider) *EventHandler {
	return &EventHandler{service: service}
}

// GetRecent handles the request to get the caller's recent events.
func (h *EventHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, r, models.ErrUnauthorized)
		return
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultEventLimit
	}

	events, err := h.service.GetRecentEvents(r.Context(), user.ID, limit)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to retrieve events")
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, events)
}
