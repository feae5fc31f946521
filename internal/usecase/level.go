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
	"github.com/arklim/learning-tracker-core/internal/infra/telemetry"
	"github.com/arklim/learning-tracker-core/internal/repository"
)

// ErrUserNotFound indicates the identifier does not resolve to a user.
var ErrUserNotFound = errors.New("user not found")

// LevelService derives user levels from cumulative points against the
// configured threshold ladder and keeps the cached level column in sync.
type LevelService struct {
	users      port.UserRepository
	thresholds port.ThresholdRepository
	events     port.EventPublisher
	metrics    *telemetry.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewLevelService constructs a LevelService.
func NewLevelService(users port.UserRepository, thresholds port.ThresholdRepository, events port.EventPublisher, metrics *telemetry.Metrics, logger *zap.Logger) *LevelService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LevelService{
		users:      users,
		thresholds: thresholds,
		events:     events,
		metrics:    metrics,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (s *LevelService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// LevelForPoints resolves the level name for a point total against the
// configured ladder.
func (s *LevelService) LevelForPoints(ctx context.Context, points int) (string, error) {
	thresholds, err := s.loadThresholds(ctx)
	if err != nil {
		return "", err
	}

	level, err := domain.ResolveLevel(points, thresholds)
	if err != nil {
		return "", err
	}
	return level.Name, nil
}

// PointsIntoLevel returns the progress remainder above the attained
// threshold, for progress-bar style display.
func (s *LevelService) PointsIntoLevel(ctx context.Context, points int) (int, error) {
	thresholds, err := s.loadThresholds(ctx)
	if err != nil {
		return 0, err
	}
	return domain.PointsIntoLevel(points, thresholds)
}

// AwardResult summarizes a point award.
type AwardResult struct {
	UserID        string
	Points        int
	PreviousLevel string
	Level         string
	LevelChanged  bool
}

// AwardPoints applies a point delta to the user, recomputes the level, and
// persists it when it changed. Negative deltas are administrative
// corrections; the stored total never drops below zero.
func (s *LevelService) AwardPoints(ctx context.Context, userID string, delta int) (*AwardResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	thresholds, err := s.loadThresholds(ctx)
	if err != nil {
		return nil, err
	}

	points, err := s.users.AddPoints(ctx, userID, delta)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update points: %w", err)
	}

	level, err := domain.ResolveLevel(points, thresholds)
	if err != nil {
		return nil, err
	}

	result := &AwardResult{
		UserID:        userID,
		Points:        points,
		PreviousLevel: user.Level,
		Level:         level.Name,
		LevelChanged:  level.Name != user.Level,
	}

	if result.LevelChanged {
		if err := s.users.UpdateLevel(ctx, userID, level.Name); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, fmt.Errorf("update level: %w", err)
		}
		s.metrics.ObserveLevelChange()
		s.publishLevelChanged(ctx, result)
	}

	return result, nil
}

// GetUser returns the user with the level reconciled against the current
// ladder. The stored level may be stale after a ladder change; reads repair
// it before returning.
func (s *LevelService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	thresholds, err := s.loadThresholds(ctx)
	if err != nil {
		return nil, err
	}

	level, err := domain.ResolveLevel(user.Points, thresholds)
	if err != nil {
		return nil, err
	}

	if level.Name != user.Level {
		if err := s.users.UpdateLevel(ctx, user.ID, level.Name); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("reconcile level: %w", err)
		}
		user.Level = level.Name
	}

	return user, nil
}

func (s *LevelService) loadThresholds(ctx context.Context) ([]domain.LevelThreshold, error) {
	if s.thresholds == nil {
		return nil, fmt.Errorf("threshold repository not configured")
	}
	thresholds, err := s.thresholds.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load thresholds: %w", err)
	}
	return thresholds, nil
}

func (s *LevelService) publishLevelChanged(ctx context.Context, result *AwardResult) {
	if s.events == nil {
		return
	}

	event := domain.LevelChangedEvent{
		EventID:       uuid.NewString(),
		UserID:        result.UserID,
		PreviousLevel: result.PreviousLevel,
		NewLevel:      result.Level,
		Points:        result.Points,
		ChangedAt:     s.now(),
	}

	if err := s.events.PublishLevelChanged(ctx, event); err != nil {
		s.logger.Warn("publish level changed event failed", zap.String("user_id", result.UserID), zap.Error(err))
	}
}
