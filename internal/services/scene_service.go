package services

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/isdelr/cubeforge-be/internal/database"
	"github.com/isdelr/cubeforge-be/internal/models"
)

// upsertSceneQuery relies on the UNIQUE constraint on user_data.user_id, so
// concurrent saves for one user converge on a single row.
const upsertSceneQuery = `
	INSERT INTO user_data (user_id, cube_data, created_at, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (user_id) DO UPDATE
	SET cube_data = excluded.cube_data, updated_at = excluded.updated_at`

// SceneServiceProvider defines the interface for scene document services.
type SceneServiceProvider interface {
	Save(ctx context.Context, userID string, doc models.SceneDocument) error
	Get(ctx context.Context, userID string) (models.SceneDocument, error)
}

// SceneService stores one scene document per user.
type SceneService struct {
	db     *database.DB
	events *EventService
}

// NewSceneService creates a new SceneService.
func NewSceneService(db *database.DB, events *EventService) *SceneService {
	return &SceneService{db: db, events: events}
}

// Save validates doc and replaces the user's stored document with it, creating
// the row on first save. Last write wins.
func (s *SceneService) Save(ctx context.Context, userID string, doc models.SceneDocument) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	payload, err := doc.MarshalCanonical()
	if err != nil {
		return fmt.Errorf("failed to serialize scene document: %w", err)
	}

	now := time.Now().UTC()
	return s.db.WithTx(ctx, func(ctx context.Context, tx database.Querier) error {
		if _, err := tx.ExecContext(ctx, s.db.Rebind(upsertSceneQuery), userID, string(payload), now, now); err != nil {
			return storageErr("upsert scene", err)
		}
		return s.events.record(ctx, tx, userID, models.EventSceneSave,
			fmt.Sprintf("Scene saved with %d cubes and %d hinges.", len(doc.Cubes), len(doc.HingePoints)))
	})
}

// Get returns the user's stored document, or an empty document when nothing
// was saved yet. A stored payload that no longer parses fails with
// models.ErrCorruptData.
func (s *SceneService) Get(ctx context.Context, userID string) (models.SceneDocument, error) {
	var payload sql.NullString
	err := s.db.WithConn(ctx, func(ctx context.Context, q database.Querier) error {
		err := q.QueryRowContext(ctx, s.db.Rebind("SELECT cube_data FROM user_data WHERE user_id = ?"), userID).Scan(&payload)
		if err != nil && !database.IsNotFound(err) {
			return storageErr("select scene", err)
		}
		return nil
	})
	if err != nil {
		return models.SceneDocument{}, err
	}

	raw := bytes.TrimSpace([]byte(payload.String))
	if !payload.Valid || len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return models.EmptySceneDocument(), nil
	}

	doc, err := models.ParseSceneDocument(raw)
	if err != nil {
		return models.SceneDocument{}, fmt.Errorf("%w: scene of user %s: %v", models.ErrCorruptData, userID, err)
	}
	return doc, nil
}
