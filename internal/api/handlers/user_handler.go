package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/isdelr/cubeforge-be/internal/auth"
	"github.com/isdelr/cubeforge-be/internal/httpx"
	"github.com/isdelr/cubeforge-be/internal/models"
	"github.com/isdelr/cubeforge-be/internal/services"
	"github.com/rs/zerolog/log"
)

// TokenIssuer creates bearer tokens for authenticated users.
type TokenIssuer interface {
	Issue(subject string, ttl time.Duration) (string, error)
}

// UserHandler handles HTTP requests for registration and login.
type UserHandler struct {
	service      services.UserServiceProvider
	tokens       TokenIssuer
	maxBodyBytes int64
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.UserServiceProvider, tokens TokenIssuer, maxBodyBytes int64) *UserHandler {
	return &UserHandler{service: service, tokens: tokens, maxBodyBytes: maxBodyBytes}
}

// RegisterPayload defines the structure for registration requests.
type RegisterPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginPayload accepts either a username or an email.
type LoginPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Register handles new user registration.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if !httpx.DecodeJSON(w, r, h.maxBodyBytes, &payload) {
		return
	}

	if _, err := h.service.Register(r.Context(), payload.Username, payload.Email, payload.Password); err != nil {
		log.Warn().Err(err).Str("username", payload.Username).Msg("Failed to register user")
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, statusSuccess)
}

// Login authenticates a JSON payload and returns a bearer token. The user is
// looked up by whichever of username or email the client sent.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if !httpx.DecodeJSON(w, r, h.maxBodyBytes, &payload) {
		return
	}

	username := strings.TrimSpace(payload.Username)
	email := strings.TrimSpace(payload.Email)
	switch {
	case username != "":
		h.login(w, r, username, payload.Password, h.service.AuthenticateByUsername)
	case email != "":
		h.login(w, r, email, payload.Password, h.service.AuthenticateByEmail)
	default:
		h.login(w, r, "", payload.Password, nil)
	}
}

// Token implements the OAuth2 password grant: a form-encoded username and
// password, answered like Login. The username field also accepts an email.
func (h *UserHandler) Token(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		httpx.BadRequest(w, r, "body", "must be a valid form")
		return
	}
	h.login(w, r, strings.TrimSpace(r.PostForm.Get("username")), r.PostForm.Get("password"), h.service.Authenticate)
}

type authenticateFunc func(ctx context.Context, identifier, password string) (models.User, error)

func (h *UserHandler) login(w http.ResponseWriter, r *http.Request, identifier, password string, authenticate authenticateFunc) {
	var ve models.ValidationErrors
	if identifier == "" {
		ve.Add("username", "username or email is required")
	}
	if password == "" {
		ve.Add("password", "is required")
	}
	if err := ve.Err(); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	user, err := authenticate(r.Context(), identifier, password)
	if err != nil {
		log.Warn().Err(err).Str("identifier", identifier).Msg("Failed authentication attempt")
		httpx.WriteError(w, r, err)
		return
	}

	token, err := h.tokens.Issue(user.Username, 0)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to generate JWT")
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// GetMe returns the authenticated user.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user from context")
		httpx.WriteError(w, r, models.ErrUnauthorized)
		return
	}

	user.PasswordHash = ""
	httpx.WriteJSON(w, http.StatusOK, user)
}
