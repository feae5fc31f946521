package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgExecutor abstracts pool, transaction, and mock executors.
type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Users      *UserRepository
	Thresholds *ThresholdRepository
	Sessions   *SessionRepository
	Audit      *AuditRepository
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Users:      NewUserRepository(pool),
		Thresholds: NewThresholdRepository(pool),
		Sessions:   NewSessionRepository(pool),
		Audit:      NewAuditRepository(pool),
	}
}
