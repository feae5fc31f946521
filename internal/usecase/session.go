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
	"github.com/arklim/learning-tracker-core/internal/infra/security"
	"github.com/arklim/learning-tracker-core/internal/infra/telemetry"
	"github.com/arklim/learning-tracker-core/internal/repository"
)

const defaultSessionTokenBytes = 32

var (
	// ErrInvalidCredentials indicates the username/secret pair does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountPaused indicates the account may not establish new sessions.
	ErrAccountPaused = errors.New("account is paused")
)

// SessionService issues opaque session tokens and performs the bulk
// invalidation sweep used by credential rotation.
type SessionService struct {
	sessions   port.SessionRepository
	users      port.UserRepository
	events     port.EventPublisher
	metrics    *telemetry.Metrics
	logger     *zap.Logger
	ttl        time.Duration
	tokenBytes int
	now        func() time.Time
}

// NewSessionService constructs a SessionService.
func NewSessionService(sessions port.SessionRepository, users port.UserRepository, ttl time.Duration, events port.EventPublisher, metrics *telemetry.Metrics, log *zap.Logger) *SessionService {
	if log == nil {
		log = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionService{
		sessions:   sessions,
		users:      users,
		events:     events,
		metrics:    metrics,
		logger:     log,
		ttl:        ttl,
		tokenBytes: defaultSessionTokenBytes,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (s *SessionService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// WithTokenByteLength adjusts the random byte count behind issued tokens.
func (s *SessionService) WithTokenByteLength(length int) *SessionService {
	if length > 0 {
		s.tokenBytes = length
	}
	return s
}

// Login verifies the credential and issues a session for the account.
func (s *SessionService) Login(ctx context.Context, username, secret string) (*domain.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if s.users == nil {
		return nil, fmt.Errorf("user repository not configured")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	matches, err := security.VerifyPassword(secret, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify credential: %w", err)
	}
	if !matches {
		return nil, ErrInvalidCredentials
	}
	if !user.CanLogin() {
		return nil, ErrAccountPaused
	}

	return s.Issue(ctx, user.ID)
}

// Issue creates a new active session for the user.
func (s *SessionService) Issue(ctx context.Context, userID string) (*domain.Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if s.sessions == nil {
		return nil, fmt.Errorf("session repository not configured")
	}

	token, err := security.GenerateSessionToken(s.tokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	now := s.now()
	session := domain.Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
		Active:    true,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &session, nil
}

// ListActive returns the user's live sessions.
func (s *SessionService) ListActive(ctx context.Context, userID string) ([]domain.Session, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if s.sessions == nil {
		return nil, fmt.Errorf("session repository not configured")
	}
	return s.sessions.ListActiveByUser(ctx, userID)
}

// InvalidateAllForUser deactivates every active session for the user in one
// bulk sweep and reports how many were affected.
func (s *SessionService) InvalidateAllForUser(ctx context.Context, userID, reason string) (int, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, fmt.Errorf("user id is required")
	}
	if s.sessions == nil {
		return 0, fmt.Errorf("session repository not configured")
	}

	count, err := s.sessions.DeactivateAllForUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("deactivate sessions: %w", err)
	}

	s.metrics.ObserveSessionsInvalidated(count)
	if count > 0 {
		s.publishSessionsInvalidated(ctx, userID, reason, count)
	}

	return count, nil
}

func (s *SessionService) publishSessionsInvalidated(ctx context.Context, userID, reason string, count int) {
	if s.events == nil {
		return
	}

	event := domain.SessionsInvalidatedEvent{
		EventID:       uuid.NewString(),
		UserID:        userID,
		Count:         count,
		Reason:        reason,
		InvalidatedAt: s.now(),
	}

	if err := s.events.PublishSessionsInvalidated(ctx, event); err != nil {
		s.logger.Warn("publish sessions invalidated event failed", zap.String("user_id", userID), zap.Error(err))
	}
}
