package port

import (
	"context"

	"github.com/arklim/learning-tracker-core/internal/core/domain"
)

// SessionRepository deals with session storage.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) error
	GetByToken(ctx context.Context, token string) (*domain.Session, error)
	ListActiveByUser(ctx context.Context, userID string) ([]domain.Session, error)
	DeactivateAllForUser(ctx context.Context, userID string) (int, error)
}
