package domain

import "time"

// AuditOutcome classifies the result recorded by an audit entry.
type AuditOutcome string

const (
	AuditOutcomeSuccess AuditOutcome = "success"
	AuditOutcomeFailure AuditOutcome = "failure"
)

// Audit event types written by the core services.
const (
	AuditEventCredentialRotated = "credential_rotated"
)

// AuditRecord is an append-only log entry describing a security-relevant
// event. SubjectUserID is nil when the subject could not be resolved.
type AuditRecord struct {
	ID            string
	EventType     string
	SubjectUserID *string
	Outcome       AuditOutcome
	Detail        string
	CreatedAt     time.Time
}
