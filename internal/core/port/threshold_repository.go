package port

import (
	"context"

	"github.com/arklim/learning-tracker-core/internal/core/domain"
)

// ThresholdRepository provides access to the configured level ladder.
// List returns thresholds in insertion order so the later-wins tie-break
// on equal minimums stays observable.
type ThresholdRepository interface {
	List(ctx context.Context) ([]domain.LevelThreshold, error)
	Replace(ctx context.Context, thresholds []domain.LevelThreshold) error
}
