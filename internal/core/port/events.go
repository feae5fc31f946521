package port

import (
	"context"

	"github.com/arklim/learning-tracker-core/internal/core/domain"
)

// EventPublisher propagates domain events to downstream consumers.
type EventPublisher interface {
	PublishCredentialRotated(ctx context.Context, event domain.CredentialRotatedEvent) error
	PublishLevelChanged(ctx context.Context, event domain.LevelChangedEvent) error
	PublishSessionsInvalidated(ctx context.Context, event domain.SessionsInvalidatedEvent) error
}
