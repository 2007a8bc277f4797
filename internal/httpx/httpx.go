// Package httpx holds the JSON response helpers shared by the handlers and
// the auth middleware, so every error body has the same shape.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/isdelr/cubeforge-be/internal/models"
	"github.com/rs/zerolog/log"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error  string                   `json:"error"`
	Detail string                   `json:"detail"`
	Fields []models.ValidationError `json:"fields,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// WriteError maps err onto a status code and a client-safe body. The raw
// error is logged only.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	if ve, ok := models.AsValidationErrors(err); ok {
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  "validation_error",
			Detail: ve.Error(),
			Fields: ve,
		})
		return
	}

	switch {
	case errors.Is(err, models.ErrConflict):
		WriteJSON(w, http.StatusConflict, ErrorResponse{Error: "conflict", Detail: "Username or email already registered"})
	case errors.Is(err, models.ErrInvalidCredentials):
		w.Header().Set("WWW-Authenticate", "Bearer")
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Detail: "Incorrect username or password"})
	case errors.Is(err, models.ErrUnauthorized), errors.Is(err, models.ErrInvalidToken):
		log.Debug().Err(err).Str("path", r.URL.Path).Msg("Rejected request")
		w.Header().Set("WWW-Authenticate", "Bearer")
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Detail: "Could not validate credentials"})
	case errors.Is(err, models.ErrStorageUnavailable):
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Storage unavailable")
		WriteJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "storage_unavailable", Detail: "Storage temporarily unavailable"})
	case errors.Is(err, models.ErrCorruptData):
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Stored data is corrupt")
		WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "corrupt_data", Detail: "Stored data could not be read"})
	case errors.Is(err, models.ErrStorage):
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Storage error")
		WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "storage_error", Detail: "Storage error"})
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Detail: "Internal server error"})
	}
}

// WriteTooLarge reports a body over the configured limit.
func WriteTooLarge(w http.ResponseWriter) {
	WriteJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "payload_too_large", Detail: "Request body too large"})
}

// BadRequest reports an unreadable body as a validation failure on field.
func BadRequest(w http.ResponseWriter, r *http.Request, field, message string) {
	var ve models.ValidationErrors
	ve.Add(field, message)
	WriteError(w, r, ve)
}

// DecodeJSON reads exactly one JSON value, capped at maxBytes, into dst.
// Trailing data after the value is rejected. On failure the response has
// already been written.
func DecodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(r.Body)

	err := dec.Decode(dst)
	if err == nil {
		if extra := dec.Decode(&struct{}{}); !errors.Is(extra, io.EOF) {
			err = extra
			if err == nil {
				err = errors.New("trailing data after JSON value")
			}
		}
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteTooLarge(w)
			return false
		}
		BadRequest(w, r, "body", "must be a single valid JSON object")
		return false
	}
	return true
}
