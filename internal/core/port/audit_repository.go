package port

import (
	"context"

	"github.com/arklim/learning-tracker-core/internal/core/domain"
)

// AuditRepository persists append-only audit records. Records are never
// mutated or deleted by the core.
type AuditRepository interface {
	Append(ctx context.Context, record domain.AuditRecord) error
	ListBySubject(ctx context.Context, userID string, limit int) ([]domain.AuditRecord, error)
}
