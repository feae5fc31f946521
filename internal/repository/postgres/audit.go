package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arklim/learning-tracker-core/internal/core/domain"
	"github.com/arklim/learning-tracker-core/internal/core/port"
)

var auditColumns = []string{
	"id",
	"event_type",
	"subject_user_id",
	"outcome",
	"detail",
	"created_at",
}

// AuditRepository implements port.AuditRepository for PostgreSQL.
// Records are append-only: no update or delete statements exist here.
type AuditRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAuditRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewAuditRepository(exec pgExecutor) *AuditRepository {
	repo := &AuditRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// Append inserts an audit record.
func (r *AuditRepository) Append(ctx context.Context, record domain.AuditRecord) error {
	sql, args, err := r.builder.Insert("tracker.audit_records").
		Columns(auditColumns...).
		Values(
			record.ID,
			record.EventType,
			record.SubjectUserID,
			record.Outcome,
			record.Detail,
			record.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert audit record sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}

	return nil
}

// ListBySubject returns the most recent audit records for a user.
func (r *AuditRepository) ListBySubject(ctx context.Context, userID string, limit int) ([]domain.AuditRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	sql, args, err := r.builder.
		Select(auditColumns...).
		From("tracker.audit_records").
		Where(squirrel.Eq{"subject_user_id": userID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list audit records sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	var records []domain.AuditRecord
	for rows.Next() {
		var record domain.AuditRecord
		if err := rows.Scan(
			&record.ID,
			&record.EventType,
			&record.SubjectUserID,
			&record.Outcome,
			&record.Detail,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}

	return records, nil
}

var _ port.AuditRepository = (*AuditRepository)(nil)
