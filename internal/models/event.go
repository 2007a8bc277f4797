package models

import "time"

// Event types recorded in the audit trail.
const (
	EventUserRegister = "user.register"
	EventUserLogin    = "user.login"
	EventSceneSave    = "scene.save"
)

// Event represents an auditable action performed by a user.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"` // e.g., "user.login", "scene.save"
	Message   string    `json:"message"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}
