package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/isdelr/cubeforge-be/internal/auth"
	"github.com/isdelr/cubeforge-be/internal/httpx"
	"github.com/isdelr/cubeforge-be/internal/models"
	"github.com/isdelr/cubeforge-be/internal/services"
	"github.com/rs/zerolog/log"
)

// SceneHandler handles saving and loading the caller's scene document.
type SceneHandler struct {
	service      services.SceneServiceProvider
	maxBodyBytes int64
}

// NewSceneHandler creates a new SceneHandler.
func NewSceneHandler(service services.SceneServiceProvider, maxBodyBytes int64) *SceneHandler {
	return &SceneHandler{service: service, maxBodyBytes: maxBodyBytes}
}

// Save replaces the caller's scene with the request body.
func (h *SceneHandler) Save(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, r, models.ErrUnauthorized)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.WriteTooLarge(w)
			return
		}
		httpx.BadRequest(w, r, "body", "could not be read")
		return
	}

	doc, err := models.ParseSceneDocument(body)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	if err := h.service.Save(r.Context(), user.ID, doc); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to save scene")
		httpx.WriteError(w, r, err)
		return
	}

	log.Debug().Str("user_id", user.ID).Int("cubes", len(doc.Cubes)).Msg("Scene saved")
	httpx.WriteJSON(w, http.StatusOK, statusSuccess)
}

// Get returns the caller's scene, or an empty one if none was saved.
func (h *SceneHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, r, models.ErrUnauthorized)
		return
	}

	doc, err := h.service.Get(r.Context(), user.ID)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to load scene")
		httpx.WriteError(w, r, err)
		return
	}

	doc.Normalize()
	httpx.WriteJSON(w, http.StatusOK, doc)
}
