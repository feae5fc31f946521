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

var userColumns = []string{
	"id",
	"username",
	"password_hash",
	"points",
	"level",
	"status",
	"created_at",
}

// UserRepository implements port.UserRepository using PostgreSQL.
type UserRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewUserRepository(exec pgExecutor) *UserRepository {
	repo := &UserRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	if tx == nil {
		return r
	}
	return &UserRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new user row.
func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	sql, args, err := r.builder.Insert("tracker.users").
		Columns(userColumns...).
		Values(
			user.ID,
			user.Username,
			user.PasswordHash,
			user.Points,
			user.Level,
			user.Status,
			user.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	sql, args, err := r.builder.
		Select(userColumns...).
		From("tracker.users").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	return r.scanUser(r.exec.QueryRow(ctx, sql, args...))
}

// GetByUsername retrieves a user by display name.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	sql, args, err := r.builder.
		Select(userColumns...).
		From("tracker.users").
		Where(squirrel.Eq{"username": username}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	return r.scanUser(r.exec.QueryRow(ctx, sql, args...))
}

// AddPoints applies a point delta and returns the new cumulative total.
// The total never drops below zero, even on administrative corrections.
func (r *UserRepository) AddPoints(ctx context.Context, id string, delta int) (int, error) {
	sql, args, err := r.builder.Update("tracker.users").
		Set("points", squirrel.Expr("GREATEST(points + ?, 0)", delta)).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING points").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build update points sql: %w", err)
	}

	var points int
	if err := r.exec.QueryRow(ctx, sql, args...).Scan(&points); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, repository.ErrNotFound
		}
		return 0, fmt.Errorf("update points: %w", err)
	}

	return points, nil
}

// UpdateLevel persists the derived level name onto the user row.
func (r *UserRepository) UpdateLevel(ctx context.Context, id string, level string) error {
	sql, args, err := r.builder.Update("tracker.users").
		Set("level", level).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update level sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update level: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdateStatus changes the account status.
func (r *UserRepository) UpdateStatus(ctx context.Context, id string, status domain.UserStatus) error {
	sql, args, err := r.builder.Update("tracker.users").
		Set("status", status).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update status sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdatePassword replaces the stored credential hash in a single-row update.
func (r *UserRepository) UpdatePassword(ctx context.Context, id string, passwordHash string, changedAt time.Time) error {
	sql, args, err := r.builder.Update("tracker.users").
		Set("password_hash", passwordHash).
		Set("password_changed_at", changedAt).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *UserRepository) scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Points,
		&user.Level,
		&user.Status,
		&user.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	return &user, nil
}

var _ port.UserRepository = (*UserRepository)(nil)
