package domain

import "time"

// CredentialRotatedEvent represents the payload for tracker.user.credential.rotated messages.
type CredentialRotatedEvent struct {
	EventID             string
	UserID              string
	RotatedAt           time.Time
	RotatedBy           string
	SessionsInvalidated int
	Metadata            map[string]any
}

// LevelChangedEvent represents the payload for tracker.user.level.changed messages.
type LevelChangedEvent struct {
	EventID       string
	UserID        string
	PreviousLevel string
	NewLevel      string
	Points        int
	ChangedAt     time.Time
	Metadata      map[string]any
}

// SessionsInvalidatedEvent represents the payload for tracker.session.invalidated messages.
type SessionsInvalidatedEvent struct {
	EventID       string
	UserID        string
	Count         int
	Reason        string
	InvalidatedAt time.Time
	Metadata      map[string]any
}
