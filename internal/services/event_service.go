package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/cubeforge-be/internal/database"
	"github.com/isdelr/cubeforge-be/internal/models"
)

const maxEventLimit = 100

// EventServiceProvider defines the interface for event services.
type EventServiceProvider interface {
	CreateEvent(ctx context.Context, userID, eventType, message string) error
	GetRecentEvents(ctx context.Context, userID string, limit int) ([]models.Event, error)
}

// EventService records the audit trail of user actions.
type EventService struct {
	db *database.DB
}

// NewEventService creates a new EventService.
func NewEventService(db *database.DB) *EventService {
	return &EventService{db: db}
}

// CreateEvent logs a new event to the database.
func (s *EventService) CreateEvent(ctx context.Context, userID, eventType, message string) error {
	return s.db.WithConn(ctx, func(ctx context.Context, q database.Querier) error {
		return s.record(ctx, q, userID, eventType, message)
	})
}

// record inserts an event using q, so it can join a caller's transaction.
func (s *EventService) record(ctx context.Context, q database.Querier, userID, eventType, message string) error {
	event := models.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Message:   message,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}

	_, err := q.ExecContext(ctx,
		s.db.Rebind("INSERT INTO events (id, type, message, user_id, created_at) VALUES (?, ?, ?, ?, ?)"),
		event.ID, event.Type, event.Message, event.UserID, event.CreatedAt,
	)
	if err != nil {
		return storageErr("insert event", err)
	}
	return nil
}

// GetRecentEvents retrieves the most recent events of a user.
func (s *EventService) GetRecentEvents(ctx context.Context, userID string, limit int) ([]models.Event, error) {
	if limit <= 0 || limit > maxEventLimit {
		limit = maxEventLimit
	}

	events := []models.Event{}
	err := s.db.WithConn(ctx, func(ctx context.Context, q database.Querier) error {
		rows, err := q.QueryContext(ctx,
			s.db.Rebind("SELECT id, type, message, user_id, created_at FROM events WHERE user_id = ? ORDER BY created_at DESC LIMIT ?"),
			userID, limit,
		)
		if err != nil {
			return storageErr("query events", err)
		}
		defer rows.Close()

		for rows.Next() {
			var event models.Event
			if err := rows.Scan(&event.ID, &event.Type, &event.Message, &event.UserID, &event.CreatedAt); err != nil {
				return storageErr("scan event", err)
			}
			events = append(events, event)
		}
		if err := rows.Err(); err != nil {
			return storageErr("iterate events", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}
