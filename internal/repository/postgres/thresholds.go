package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arklim/learning-tracker-core/internal/core/domain"
	"github.com/arklim/learning-tracker-core/internal/core/port"
)

// ThresholdRepository implements port.ThresholdRepository for PostgreSQL.
// The position column preserves insertion order so equal-minimum ties keep
// their later-wins semantics across reloads.
type ThresholdRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewThresholdRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewThresholdRepository(exec pgExecutor) *ThresholdRepository {
	repo := &ThresholdRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// List returns the configured thresholds in insertion order.
func (r *ThresholdRepository) List(ctx context.Context) ([]domain.LevelThreshold, error) {
	sql, args, err := r.builder.
		Select("level_name", "points_required").
		From("tracker.level_thresholds").
		OrderBy("position ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list thresholds sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query thresholds: %w", err)
	}
	defer rows.Close()

	var thresholds []domain.LevelThreshold
	for rows.Next() {
		var threshold domain.LevelThreshold
		if err := rows.Scan(&threshold.Name, &threshold.MinimumPoints); err != nil {
			return nil, fmt.Errorf("scan threshold: %w", err)
		}
		thresholds = append(thresholds, threshold)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate thresholds: %w", err)
	}

	return thresholds, nil
}

// Replace swaps the whole ladder atomically after validating it. Requires
// a pool-backed repository since it opens its own transaction.
func (r *ThresholdRepository) Replace(ctx context.Context, thresholds []domain.LevelThreshold) error {
	if err := domain.ValidateLadder(thresholds); err != nil {
		return err
	}
	if r.pool == nil {
		return fmt.Errorf("replace thresholds requires a pool-backed repository")
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin replace thresholds: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, "DELETE FROM tracker.level_thresholds"); err != nil {
		return fmt.Errorf("clear thresholds: %w", err)
	}

	insert := r.builder.Insert("tracker.level_thresholds").
		Columns("level_name", "points_required", "position")
	for i, threshold := range thresholds {
		insert = insert.Values(threshold.Name, threshold.MinimumPoints, i)
	}

	sql, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("build insert thresholds sql: %w", err)
	}

	if _, err := tx.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert thresholds: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace thresholds: %w", err)
	}

	return nil
}

var _ port.ThresholdRepository = (*ThresholdRepository)(nil)
