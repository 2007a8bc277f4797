package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/isdelr/cubeforge-be/internal/httpx"
	"github.com/isdelr/cubeforge-be/internal/models"
)

// UserLookup resolves a token subject to a user record.
type UserLookup interface {
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
}

type contextKey string

// UserContextKey is the context key for the authenticated user.
const UserContextKey = contextKey("user")

// Guard protects routes that require an authenticated user.
type Guard struct {
	tokens *TokenService
	users  UserLookup
}

// NewGuard creates a new Guard.
func NewGuard(tokens *TokenService, users UserLookup) *Guard {
	return &Guard{tokens: tokens, users: users}
}

// Authenticate resolves the user behind the request's bearer token. A missing,
// invalid or expired token, or a subject that no longer exists, fails with
// models.ErrUnauthorized. Storage failures are returned unchanged.
func (g *Guard) Authenticate(r *http.Request) (models.User, error) {
	tokenStr, ok := bearerToken(r)
	if !ok {
		return models.User{}, fmt.Errorf("%w: missing bearer token", models.ErrUnauthorized)
	}

	claims, err := g.tokens.Verify(tokenStr)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}

	user, err := g.users.GetUserByUsername(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return models.User{}, fmt.Errorf("%w: unknown subject", models.ErrUnauthorized)
		}
		return models.User{}, err
	}
	if !user.IsActive {
		return models.User{}, fmt.Errorf("%w: inactive user", models.ErrUnauthorized)
	}
	return user, nil
}

// Middleware rejects unauthenticated requests and passes the user down via
// the request context.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := g.Authenticate(r)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserFromContext returns the user stored by Middleware.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(UserContextKey).(models.User)
	return user, ok
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
