package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/learning-tracker-core/internal/core/domain"
	"github.com/arklim/learning-tracker-core/internal/core/port"
	"github.com/arklim/learning-tracker-core/internal/infra/logger"
	"github.com/arklim/learning-tracker-core/internal/infra/security"
	"github.com/arklim/learning-tracker-core/internal/infra/telemetry"
	"github.com/arklim/learning-tracker-core/internal/repository"
)

const (
	rotationRateLimitScope = "credential_rotation"
	rotationReason         = "credential_rotation"
)

// RotationOutcome tags the terminal state of a rotation attempt.
type RotationOutcome string

const (
	// OutcomeSuccess: hash replaced, prior sessions deactivated.
	OutcomeSuccess RotationOutcome = "success"
	// OutcomeRejected: policy violations; not retryable with the same input.
	OutcomeRejected RotationOutcome = "rejected"
	// OutcomeNotFound: identifier does not resolve; not retryable.
	OutcomeNotFound RotationOutcome = "not_found"
	// OutcomeStorageFailure: persistence-layer error; the only retryable
	// outcome. Prior state (old hash, active sessions) is left untouched
	// unless the hash was already replaced, which the detail records.
	OutcomeStorageFailure RotationOutcome = "storage_failure"
)

// RateLimitExceededError reports that no rotation attempts remain in the
// current window.
type RateLimitExceededError struct {
	Scope      string
	RetryAfter time.Duration
}

// Error implements error.
func (e *RateLimitExceededError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limit exceeded for %s, retry after %s", e.Scope, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded for %s", e.Scope)
}

// RotateInput captures the context required to rotate a user's credential.
type RotateInput struct {
	UserID    string
	ActorID   string
	NewSecret string
}

// RotationResult describes the terminal state of one rotation invocation.
// Violations is populated only for OutcomeRejected and always enumerates
// every unmet rule, never just the first one found.
type RotationResult struct {
	Outcome             RotationOutcome
	Violations          []security.PolicyViolation
	SessionsInvalidated int
	RotatedAt           time.Time
}

// Retryable reports whether the caller may retry with the same input.
func (r *RotationResult) Retryable() bool {
	return r != nil && r.Outcome == OutcomeStorageFailure
}

// RotationService replaces a user's credential hash and invalidates every
// session issued under the old credential, writing exactly one audit record
// per invocation.
//
// Two rotations racing for the same user are not serialized: the later
// persisted hash wins, and its session sweep is authoritative for everything
// issued before it. The earlier call's sweep may spuriously deactivate
// sessions issued by the later rotation. Acceptable for this scope.
type RotationService struct {
	users           port.UserRepository
	sessionManager  *SessionService
	audit           port.AuditRepository
	policy          *security.PasswordPolicy
	protected       *security.ProtectedAccounts
	rateLimits      port.RateLimitStore
	rateLimitWindow time.Duration
	rateLimitMax    int
	events          port.EventPublisher
	metrics         *telemetry.Metrics
	logger          *zap.Logger
	now             func() time.Time
}

// NewRotationService constructs a RotationService.
func NewRotationService(users port.UserRepository, sessions *SessionService, audit port.AuditRepository, policy *security.PasswordPolicy, events port.EventPublisher, metrics *telemetry.Metrics, log *zap.Logger) *RotationService {
	if policy == nil {
		policy = security.NewPasswordPolicy()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RotationService{
		users:          users,
		sessionManager: sessions,
		audit:          audit,
		policy:         policy,
		events:         events,
		metrics:        metrics,
		logger:         log,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (s *RotationService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// WithProtectedAccounts installs the configured protected-account set.
// This is the only place the set is consulted.
func (s *RotationService) WithProtectedAccounts(protected *security.ProtectedAccounts) *RotationService {
	s.protected = protected
	return s
}

// WithRateLimit enables the sliding-window limit on rotation attempts.
func (s *RotationService) WithRateLimit(store port.RateLimitStore, window time.Duration, maxAttempts int) *RotationService {
	s.rateLimits = store
	s.rateLimitWindow = window
	s.rateLimitMax = maxAttempts
	return s
}

// Rotate validates the new secret, replaces the stored hash, and deactivates
// every previously active session for the user. Every invocation, whatever
// its outcome, appends exactly one audit record. The returned error is
// reserved for conditions outside the four outcomes (bad input, rate limit).
func (s *RotationService) Rotate(ctx context.Context, input RotateInput) (*RotationResult, error) {
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if s.users == nil || s.audit == nil || s.sessionManager == nil {
		return nil, fmt.Errorf("rotation service not fully configured")
	}

	now := s.now()
	if err := s.enforceRateLimit(ctx, userID, now); err != nil {
		return nil, err
	}

	violations := s.policy.Evaluate(input.NewSecret)
	if len(violations) > 0 {
		return s.reject(ctx, userID, violations), nil
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			detail := fmt.Sprintf("unknown user %s", logger.MaskIdentifier(userID))
			s.writeAudit(ctx, nil, domain.AuditOutcomeFailure, detail)
			s.metrics.ObserveRotation(string(OutcomeNotFound))
			return &RotationResult{Outcome: OutcomeNotFound}, nil
		}
		s.writeAudit(ctx, &userID, domain.AuditOutcomeFailure, fmt.Sprintf("lookup user: %v", err))
		s.metrics.ObserveRotation(string(OutcomeStorageFailure))
		return &RotationResult{Outcome: OutcomeStorageFailure}, nil
	}

	if violation, guarded := s.guardProtectedAccount(user, input.ActorID); guarded {
		return s.reject(ctx, userID, []security.PolicyViolation{violation}), nil
	}

	hash, err := security.HashPassword(input.NewSecret)
	if err != nil {
		s.writeAudit(ctx, &user.ID, domain.AuditOutcomeFailure, fmt.Sprintf("hash new credential: %v", err))
		s.metrics.ObserveRotation(string(OutcomeStorageFailure))
		return &RotationResult{Outcome: OutcomeStorageFailure}, nil
	}

	rotatedAt := s.now()
	if err := s.users.UpdatePassword(ctx, user.ID, hash, rotatedAt); err != nil {
		// The old hash is still in effect: a failed rotation never leaves
		// the user without a usable credential.
		s.writeAudit(ctx, &user.ID, domain.AuditOutcomeFailure, fmt.Sprintf("persist new hash: %v", err))
		s.metrics.ObserveRotation(string(OutcomeStorageFailure))
		return &RotationResult{Outcome: OutcomeStorageFailure}, nil
	}

	invalidated, err := s.sessionManager.InvalidateAllForUser(ctx, user.ID, rotationReason)
	if err != nil {
		s.writeAudit(ctx, &user.ID, domain.AuditOutcomeFailure, fmt.Sprintf("hash replaced but session sweep failed: %v", err))
		s.metrics.ObserveRotation(string(OutcomeStorageFailure))
		return &RotationResult{Outcome: OutcomeStorageFailure}, nil
	}

	s.writeAudit(ctx, &user.ID, domain.AuditOutcomeSuccess, fmt.Sprintf("sessions_invalidated=%d", invalidated))
	s.metrics.ObserveRotation(string(OutcomeSuccess))
	s.publishCredentialRotated(ctx, user.ID, input.ActorID, rotatedAt, invalidated)

	return &RotationResult{
		Outcome:             OutcomeSuccess,
		SessionsInvalidated: invalidated,
		RotatedAt:           rotatedAt,
	}, nil
}

func (s *RotationService) reject(ctx context.Context, userID string, violations []security.PolicyViolation) *RotationResult {
	detail := fmt.Sprintf("policy violations: %s", strings.Join(security.ViolationCodes(violations), ", "))
	s.writeAudit(ctx, &userID, domain.AuditOutcomeFailure, detail)
	s.metrics.ObserveRotation(string(OutcomeRejected))
	return &RotationResult{Outcome: OutcomeRejected, Violations: violations}
}

// guardProtectedAccount is the single policy check consulting the protected
// account set: a protected account's credential may only be rotated by the
// account itself.
func (s *RotationService) guardProtectedAccount(user *domain.User, actorID string) (security.PolicyViolation, bool) {
	if s.protected == nil || !s.protected.Contains(user.Username) {
		return security.PolicyViolation{}, false
	}
	if strings.TrimSpace(actorID) == user.ID {
		return security.PolicyViolation{}, false
	}
	return security.PolicyViolation{
		Code:    security.ViolationProtectedAccount,
		Message: "protected accounts may only rotate their own credential",
	}, true
}

func (s *RotationService) enforceRateLimit(ctx context.Context, userID string, now time.Time) error {
	if s.rateLimits == nil || s.rateLimitMax <= 0 {
		return nil
	}

	window := s.rateLimitWindow
	if window <= 0 {
		window = time.Hour
	}

	storageKey := fmt.Sprintf("%s:%s", rotationRateLimitScope, strings.ToLower(userID))

	if err := s.rateLimits.TrimWindow(ctx, storageKey, window, now); err != nil {
		s.logger.Warn("rotation rate limit trim failed", zap.Error(err))
		return nil
	}

	count, err := s.rateLimits.CountAttempts(ctx, storageKey, window, now)
	if err != nil {
		s.logger.Warn("rotation rate limit count failed", zap.Error(err))
		return nil
	}

	if count >= s.rateLimitMax {
		retryAfter := time.Duration(0)
		if oldest, ok, err := s.rateLimits.OldestAttempt(ctx, storageKey, window, now); err == nil && ok {
			reset := oldest.Add(window)
			if reset.After(now) {
				retryAfter = reset.Sub(now)
			}
		} else if err != nil {
			s.logger.Warn("rotation rate limit oldest lookup failed", zap.Error(err))
		}
		return &RateLimitExceededError{Scope: rotationRateLimitScope, RetryAfter: retryAfter}
	}

	if err := s.rateLimits.RecordAttempt(ctx, storageKey, now); err != nil {
		s.logger.Warn("rotation rate limit record failed", zap.Error(err))
	}

	return nil
}

// writeAudit appends the single audit record for this invocation. An audit
// write failure never changes the rotation outcome; it is logged for
// operator follow-up instead.
func (s *RotationService) writeAudit(ctx context.Context, subject *string, outcome domain.AuditOutcome, detail string) {
	record := domain.AuditRecord{
		ID:            uuid.NewString(),
		EventType:     domain.AuditEventCredentialRotated,
		SubjectUserID: subject,
		Outcome:       outcome,
		Detail:        detail,
		CreatedAt:     s.now(),
	}

	if err := s.audit.Append(ctx, record); err != nil {
		s.logger.Warn("append audit record failed",
			zap.String("event_type", record.EventType),
			zap.String("outcome", string(outcome)),
			zap.Error(err),
		)
	}
}

func (s *RotationService) publishCredentialRotated(ctx context.Context, userID, actorID string, rotatedAt time.Time, invalidated int) {
	if s.events == nil {
		return
	}

	event := domain.CredentialRotatedEvent{
		EventID:             uuid.NewString(),
		UserID:              userID,
		RotatedAt:           rotatedAt,
		RotatedBy:           strings.TrimSpace(actorID),
		SessionsInvalidated: invalidated,
	}

	if err := s.events.PublishCredentialRotated(ctx, event); err != nil {
		s.logger.Warn("publish credential rotated event failed", zap.String("user_id", userID), zap.Error(err))
	}
}
