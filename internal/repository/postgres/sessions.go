package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arklim/learning-tracker-core/internal/core/domain"
	"github.com/arklim/learning-tracker-core/internal/core/port"
	"github.com/arklim/learning-tracker-core/internal/repository"
)

var sessionColumns = []string{
	"token",
	"user_id",
	"created_at",
	"expires_at",
	"is_active",
}

// SessionRepository implements port.SessionRepository for PostgreSQL.
type SessionRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewSessionRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewSessionRepository(exec pgExecutor) *SessionRepository {
	repo := &SessionRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance that executes statements within the supplied transaction.
func (r *SessionRepository) WithTx(tx pgx.Tx) *SessionRepository {
	if tx == nil {
		return r
	}
	return &SessionRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a session record.
func (r *SessionRepository) Create(ctx context.Context, session domain.Session) error {
	sql, args, err := r.builder.Insert("tracker.sessions").
		Columns(sessionColumns...).
		Values(
			session.Token,
			session.UserID,
			session.CreatedAt,
			session.ExpiresAt,
			session.Active,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert session sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

// GetByToken returns a session by its token.
func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	sql, args, err := r.builder.
		Select(sessionColumns...).
		From("tracker.sessions").
		Where(squirrel.Eq{"token": token}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select session sql: %w", err)
	}

	var session domain.Session
	if err := r.exec.QueryRow(ctx, sql, args...).Scan(
		&session.Token,
		&session.UserID,
		&session.CreatedAt,
		&session.ExpiresAt,
		&session.Active,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	return &session, nil
}

// ListActiveByUser returns active, non-expired sessions for the user.
func (r *SessionRepository) ListActiveByUser(ctx context.Context, userID string) ([]domain.Session, error) {
	now := time.Now().UTC()
	sql, args, err := r.builder.
		Select(sessionColumns...).
		From("tracker.sessions").
		Where(squirrel.Eq{"user_id": userID, "is_active": true}).
		Where(squirrel.Gt{"expires_at": now}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list sessions sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var session domain.Session
		if err := rows.Scan(
			&session.Token,
			&session.UserID,
			&session.CreatedAt,
			&session.ExpiresAt,
			&session.Active,
		); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

// DeactivateAllForUser clears the active flag on every active session for
// the user in one bulk statement, so no window remains where some old
// sessions stay valid. Returns the number of sessions deactivated.
func (r *SessionRepository) DeactivateAllForUser(ctx context.Context, userID string) (int, error) {
	sql, args, err := r.builder.Update("tracker.sessions").
		Set("is_active", false).
		Where(squirrel.Eq{"user_id": userID, "is_active": true}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build deactivate sessions sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("deactivate sessions: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

var _ port.SessionRepository = (*SessionRepository)(nil)
