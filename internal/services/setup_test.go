package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/isdelr/cubeforge-be/internal/config"
	"github.com/isdelr/cubeforge-be/internal/database"
)

type testServices struct {
	db     *database.DB
	users  *UserService
	scenes *SceneService
	events *EventService
}

func setupTestServices(t *testing.T) *testServices {
	t.Helper()
	ctx := context.Background()

	db, err := database.New(ctx, config.DatabaseConfig{
		Driver:         database.DriverSQLite,
		Path:           filepath.Join(t.TempDir(), "services.db"),
		PoolSize:       4,
		ConnectTimeout: 5 * time.Second,
		AcquireTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(ctx, db))

	events := NewEventService(db)
	return &testServices{
		db:     db,
		users:  NewUserService(db, events),
		scenes: NewSceneService(db, events),
		events: events,
	}
}

func createTestUser(t *testing.T, s *testServices, username string) string {
	t.Helper()
	id, err := s.users.Register(context.Background(), username, username+"@example.com", "password123")
	require.NoError(t, err)
	return id
}
