package handlers

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/isdelr/cubeforge-be/internal/models"
)

// MockUserService is a mock implementation of services.UserServiceProvider.
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, username, email, password string) (string, error) {
	args := m.Called(ctx, username, email, password)
	return args.String(0), args.Error(1)
}

func (m *MockUserService) FindByUsernameOrEmail(ctx context.Context, identifier string) (models.User, error) {
	args := m.Called(ctx, identifier)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockUserService) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockUserService) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockUserService) Authenticate(ctx context.Context, identifier, password string) (models.User, error) {
	args := m.Called(ctx, identifier, password)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockUserService) AuthenticateByUsername(ctx context.Context, username, password string) (models.User, error) {
	args := m.Called(ctx, username, password)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockUserService) AuthenticateByEmail(ctx context.Context, email, password string) (models.User, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(models.User), args.Error(1)
}

// MockSceneService is a mock implementation of services.SceneServiceProvider.
type MockSceneService struct {
	mock.Mock
}

func (m *MockSceneService) Save(ctx context.Context, userID string, doc models.SceneDocument) error {
	args := m.Called(ctx, userID, doc)
	return args.Error(0)
}

func (m *MockSceneService) Get(ctx context.Context, userID string) (models.SceneDocument, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(models.SceneDocument), args.Error(1)
}

// MockEventService is a mock implementation of services.EventServiceProvider.
type MockEventService struct {
	mock.Mock
}

func (m *MockEventService) CreateEvent(ctx context.Context, userID, eventType, message string) error {
	args := m.Called(ctx, userID, eventType, message)
	return args.Error(0)
}

func (m *MockEventService) GetRecentEvents(ctx context.Context, userID string, limit int) ([]models.Event, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Event), args.Error(1)
}

// MockTokenIssuer is a mock implementation of TokenIssuer.
type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) Issue(subject string, ttl time.Duration) (string, error) {
	args := m.Called(subject, ttl)
	return args.String(0), args.Error(1)
}
