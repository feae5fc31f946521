package port

import (
	"context"
	"time"

	"github.com/arklim/learning-tracker-core/internal/core/domain"
)

// UserRepository exposes persistence behavior for users.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	AddPoints(ctx context.Context, id string, delta int) (int, error)
	UpdateLevel(ctx context.Context, id string, level string) error
	UpdateStatus(ctx context.Context, id string, status domain.UserStatus) error
	UpdatePassword(ctx context.Context, id string, passwordHash string, changedAt time.Time) error
}
