package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/isdelr/cubeforge-be/internal/auth"
	"github.com/isdelr/cubeforge-be/internal/database"
	"github.com/isdelr/cubeforge-be/internal/models"
	"github.com/rs/zerolog/log"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 50
	maxEmailLen    = 100
	minPasswordLen = 6
	maxPasswordLen = 72 // bcrypt ignores anything past 72 bytes
)

const selectUserColumns = "SELECT id, username, email, hashed_password, is_active, created_at FROM users"

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Register(ctx context.Context, username, email, password string) (string, error)
	FindByUsernameOrEmail(ctx context.Context, identifier string) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	Authenticate(ctx context.Context, identifier, password string) (models.User, error)
	AuthenticateByUsername(ctx context.Context, username, password string) (models.User, error)
	AuthenticateByEmail(ctx context.Context, email, password string) (models.User, error)
}

// UserService provides business logic for user management.
type UserService struct {
	db     *database.DB
	events *EventService
}

// NewUserService creates a new UserService.
func NewUserService(db *database.DB, events *EventService) *UserService {
	return &UserService{db: db, events: events}
}

// Register creates a new user and returns its ID. Usernames keep their case
// but are unique case-insensitively; emails are stored lowercased. Both are
// checked for existence before the insert, and the unique indexes catch
// registrations racing past those checks. Both surface as models.ErrConflict.
func (s *UserService) Register(ctx context.Context, username, email, password string) (string, error) {
	username = strings.TrimSpace(username)
	email = normalizeEmail(email)
	if err := validateRegistration(username, email, password); err != nil {
		return "", err
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return "", err
	}

	user := models.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}

	err = s.db.WithTx(ctx, func(ctx context.Context, tx database.Querier) error {
		taken, err := s.exists(ctx, tx, "SELECT id FROM users WHERE lower(username) = lower(?)", user.Username)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: username already registered", models.ErrConflict)
		}

		taken, err = s.exists(ctx, tx, "SELECT id FROM users WHERE lower(email) = lower(?)", user.Email)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: email already registered", models.ErrConflict)
		}

		_, err = tx.ExecContext(ctx,
			s.db.Rebind("INSERT INTO users (id, username, email, hashed_password, is_active, created_at) VALUES (?, ?, ?, ?, ?, ?)"),
			user.ID, user.Username, user.Email, user.PasswordHash, user.IsActive, user.CreatedAt,
		)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return fmt.Errorf("%w: username or email already registered", models.ErrConflict)
			}
			return storageErr("insert user", err)
		}

		return s.events.record(ctx, tx, user.ID, models.EventUserRegister,
			fmt.Sprintf("User '%s' registered.", user.Username))
	})
	if err != nil {
		return "", err
	}

	log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("User registered")
	return user.ID, nil
}

// FindByUsernameOrEmail resolves identifier as an email when it contains
// "@" and as a username otherwise. Usernames cannot contain "@", so the two
// namespaces never overlap.
func (s *UserService) FindByUsernameOrEmail(ctx context.Context, identifier string) (models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return models.User{}, models.ErrUserNotFound
	}
	if strings.Contains(identifier, "@") {
		return s.GetUserByEmail(ctx, identifier)
	}
	return s.GetUserByUsername(ctx, identifier)
}

// GetUserByUsername retrieves a single user by username, ignoring case and
// including the password hash.
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	return s.getUserBy(ctx, selectUserColumns+" WHERE lower(username) = lower(?)", strings.TrimSpace(username))
}

// GetUserByEmail retrieves a single user by email, ignoring case.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.getUserBy(ctx, selectUserColumns+" WHERE lower(email) = lower(?)", normalizeEmail(email))
}

// Authenticate verifies credentials for a username or an email. Unknown
// users, wrong passwords and inactive accounts all fail with
// models.ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, identifier, password string) (models.User, error) {
	user, err := s.FindByUsernameOrEmail(ctx, identifier)
	return s.checkCredentials(ctx, user, err, password)
}

// AuthenticateByUsername verifies credentials looked up by username only.
func (s *UserService) AuthenticateByUsername(ctx context.Context, username, password string) (models.User, error) {
	user, err := s.GetUserByUsername(ctx, username)
	return s.checkCredentials(ctx, user, err, password)
}

// AuthenticateByEmail verifies credentials looked up by email only.
func (s *UserService) AuthenticateByEmail(ctx context.Context, email, password string) (models.User, error) {
	user, err := s.GetUserByEmail(ctx, email)
	return s.checkCredentials(ctx, user, err, password)
}

func (s *UserService) checkCredentials(ctx context.Context, user models.User, lookupErr error, password string) (models.User, error) {
	if lookupErr != nil {
		if isNotFound(lookupErr) {
			return models.User{}, models.ErrInvalidCredentials
		}
		return models.User{}, lookupErr
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return models.User{}, models.ErrInvalidCredentials
	}
	if !user.IsActive {
		return models.User{}, fmt.Errorf("%w: inactive user", models.ErrInvalidCredentials)
	}

	if err := s.events.CreateEvent(ctx, user.ID, models.EventUserLogin,
		fmt.Sprintf("User '%s' logged in.", user.Username)); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("Failed to record login event")
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *UserService) getUserBy(ctx context.Context, query string, arg string) (models.User, error) {
	var user models.User
	err := s.db.WithConn(ctx, func(ctx context.Context, q database.Querier) error {
		err := q.QueryRowContext(ctx, s.db.Rebind(query), arg).Scan(
			&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.IsActive, &user.CreatedAt,
		)
		if err != nil {
			if database.IsNotFound(err) {
				return models.ErrUserNotFound
			}
			return storageErr("select user", err)
		}
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (s *UserService) exists(ctx context.Context, q database.Querier, query string, arg string) (bool, error) {
	var id string
	err := q.QueryRowContext(ctx, s.db.Rebind(query), arg).Scan(&id)
	if err != nil {
		if database.IsNotFound(err) {
			return false, nil
		}
		return false, storageErr("check existing user", err)
	}
	return true, nil
}

func validateRegistration(username, email, password string) error {
	var ve models.ValidationErrors

	switch n := utf8.RuneCountInString(username); {
	case n == 0:
		ve.Add("username", "is required")
	case n < minUsernameLen || n > maxUsernameLen:
		ve.Add("username", fmt.Sprintf("must be between %d and %d characters long", minUsernameLen, maxUsernameLen))
	case strings.Contains(username, "@"):
		ve.Add("username", "must not contain '@'")
	}

	switch {
	case email == "":
		ve.Add("email", "is required")
	case len(email) > maxEmailLen:
		ve.Add("email", fmt.Sprintf("must be at most %d characters long", maxEmailLen))
	default:
		if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
			ve.Add("email", "must be a valid email address")
		}
	}

	switch {
	case password == "":
		ve.Add("password", "is required")
	case len(password) < minPasswordLen:
		ve.Add("password", fmt.Sprintf("must be at least %d characters long", minPasswordLen))
	case len(password) > maxPasswordLen:
		ve.Add("password", fmt.Sprintf("must be at most %d bytes long", maxPasswordLen))
	}

	return ve.Err()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isNotFound(err error) bool {
	return errors.Is(err, models.ErrUserNotFound)
}
