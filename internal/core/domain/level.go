package domain

import (
	"errors"
	"fmt"
)

// ErrThresholdsMisconfigured indicates the level ladder cannot be used:
// it is empty or lacks a zero-minimum entry. Never silently defaulted,
// because defaulting would mask an administrative misconfiguration.
var ErrThresholdsMisconfigured = errors.New("level thresholds misconfigured")

// LevelThreshold defines the boundary at which a user attains a level.
// Slice order is insertion order; on equal minimums the later entry wins.
type LevelThreshold struct {
	Name          string
	MinimumPoints int
}

// ResolveLevel returns the threshold attained by the supplied point total.
// Pure function: deterministic for a given (points, thresholds) pair.
func ResolveLevel(points int, thresholds []LevelThreshold) (LevelThreshold, error) {
	if points < 0 {
		return LevelThreshold{}, fmt.Errorf("points must be non-negative, got %d", points)
	}
	if err := checkResolvable(thresholds); err != nil {
		return LevelThreshold{}, err
	}

	var best LevelThreshold
	found := false
	for _, threshold := range thresholds {
		if threshold.MinimumPoints > points {
			continue
		}
		if !found || threshold.MinimumPoints >= best.MinimumPoints {
			best = threshold
			found = true
		}
	}
	if !found {
		return LevelThreshold{}, fmt.Errorf("%w: no threshold at or below %d points", ErrThresholdsMisconfigured, points)
	}
	return best, nil
}

// PointsIntoLevel returns how far the point total sits above the attained
// threshold's minimum. Used for progress display only, never for leveling
// decisions.
func PointsIntoLevel(points int, thresholds []LevelThreshold) (int, error) {
	level, err := ResolveLevel(points, thresholds)
	if err != nil {
		return 0, err
	}
	return points - level.MinimumPoints, nil
}

func checkResolvable(thresholds []LevelThreshold) error {
	if len(thresholds) == 0 {
		return fmt.Errorf("%w: no thresholds configured", ErrThresholdsMisconfigured)
	}
	for _, threshold := range thresholds {
		if threshold.MinimumPoints == 0 {
			return nil
		}
	}
	return fmt.Errorf("%w: no zero-minimum threshold", ErrThresholdsMisconfigured)
}

// ValidateLadder enforces the administrative invariants for a threshold set:
// at least one zero-minimum entry, no duplicate names, no duplicate minimums,
// and no negative minimums. Applied when an administrator replaces the ladder.
func ValidateLadder(thresholds []LevelThreshold) error {
	if err := checkResolvable(thresholds); err != nil {
		return err
	}

	names := make(map[string]struct{}, len(thresholds))
	minimums := make(map[int]struct{}, len(thresholds))
	for _, threshold := range thresholds {
		if threshold.Name == "" {
			return fmt.Errorf("%w: threshold with empty name", ErrThresholdsMisconfigured)
		}
		if threshold.MinimumPoints < 0 {
			return fmt.Errorf("%w: threshold %q has negative minimum", ErrThresholdsMisconfigured, threshold.Name)
		}
		if _, ok := names[threshold.Name]; ok {
			return fmt.Errorf("%w: duplicate threshold name %q", ErrThresholdsMisconfigured, threshold.Name)
		}
		if _, ok := minimums[threshold.MinimumPoints]; ok {
			return fmt.Errorf("%w: duplicate minimum %d", ErrThresholdsMisconfigured, threshold.MinimumPoints)
		}
		names[threshold.Name] = struct{}{}
		minimums[threshold.MinimumPoints] = struct{}{}
	}
	return nil
}
