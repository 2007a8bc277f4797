package models

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors shared by the services, the auth guard and the HTTP layer.
var (
	// ErrUserNotFound indicates that no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")

	// ErrConflict indicates that a username or email is already registered.
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized covers bad credentials and rejected bearer tokens.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidCredentials is the ErrUnauthorized returned by a failed login.
	ErrInvalidCredentials = fmt.Errorf("%w: incorrect username or password", ErrUnauthorized)

	// ErrInvalidToken indicates a malformed, tampered or expired token.
	ErrInvalidToken = errors.New("invalid token")

	// ErrStorage wraps failures of the backing store.
	ErrStorage = errors.New("storage error")

	// ErrStorageUnavailable indicates the store could not be reached in time.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrCorruptData indicates that a stored scene document no longer parses.
	ErrCorruptData = errors.New("corrupt data")
)

// ValidationError describes a single offending field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects every field that failed validation.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}

	parts := make([]string, 0, len(ve))
	for _, err := range ve {
		parts = append(parts, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a field error.
func (ve *ValidationErrors) Add(field, message string) {
	*ve = append(*ve, ValidationError{Field: field, Message: message})
}

// Has reports whether field has at least one error.
func (ve ValidationErrors) Has(field string) bool {
	for _, err := range ve {
		if err.Field == field {
			return true
		}
	}
	return false
}

// Fields returns the distinct offending fields in order of appearance.
func (ve ValidationErrors) Fields() []string {
	var fields []string
	seen := make(map[string]bool)
	for _, err := range ve {
		if !seen[err.Field] {
			fields = append(fields, err.Field)
			seen[err.Field] = true
		}
	}
	return fields
}

// Err returns nil when there are no errors, so callers can `return ve.Err()`.
func (ve ValidationErrors) Err() error {
	if len(ve) == 0 {
		return nil
	}
	return ve
}

// AsValidationErrors extracts ValidationErrors from err.
func AsValidationErrors(err error) (ValidationErrors, bool) {
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
