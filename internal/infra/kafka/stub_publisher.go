package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/learning-tracker-core/internal/core/domain"
	"github.com/arklim/learning-tracker-core/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for
// development environments without brokers.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("stub event published",
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishCredentialRotated logs user.credential.rotated events.
func (p *StubPublisher) PublishCredentialRotated(_ context.Context, event domain.CredentialRotatedEvent) error {
	payload := map[string]any{
		"user_id":              event.UserID,
		"rotated_at":           event.RotatedAt,
		"rotated_by":           event.RotatedBy,
		"sessions_invalidated": event.SessionsInvalidated,
		"metadata":             event.Metadata,
	}
	p.logEvent(EventTypeCredentialRotated, event.UserID, event.RotatedAt, payload)
	return nil
}

// PublishLevelChanged logs user.level.changed events.
func (p *StubPublisher) PublishLevelChanged(_ context.Context, event domain.LevelChangedEvent) error {
	payload := map[string]any{
		"user_id":        event.UserID,
		"previous_level": event.PreviousLevel,
		"new_level":      event.NewLevel,
		"points":         event.Points,
		"changed_at":     event.ChangedAt,
		"metadata":       event.Metadata,
	}
	p.logEvent(EventTypeLevelChanged, event.UserID, event.ChangedAt, payload)
	return nil
}

// PublishSessionsInvalidated logs session.invalidated events.
func (p *StubPublisher) PublishSessionsInvalidated(_ context.Context, event domain.SessionsInvalidatedEvent) error {
	payload := map[string]any{
		"user_id":        event.UserID,
		"count":          event.Count,
		"reason":         event.Reason,
		"invalidated_at": event.InvalidatedAt,
		"metadata":       event.Metadata,
	}
	p.logEvent(EventTypeSessionsInvalidated, event.UserID, event.InvalidatedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
