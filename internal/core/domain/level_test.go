package domain

import (
	"errors"
	"testing"
)

func ladder() []LevelThreshold {
	return []LevelThreshold{
		{Name: "Beginner", MinimumPoints: 0},
		{Name: "Intermediate", MinimumPoints: 300},
		{Name: "Expert", MinimumPoints: 1000},
	}
}

func TestResolveLevelReturnsConfiguredName(t *testing.T) {
	cases := []struct {
		points int
		want   string
	}{
		{points: 0, want: "Beginner"},
		{points: 299, want: "Beginner"},
		{points: 300, want: "Intermediate"},
		{points: 350, want: "Intermediate"},
		{points: 999, want: "Intermediate"},
		{points: 1000, want: "Expert"},
		{points: 1_000_000, want: "Expert"},
	}

	for _, tc := range cases {
		level, err := ResolveLevel(tc.points, ladder())
		if err != nil {
			t.Fatalf("ResolveLevel(%d) returned error: %v", tc.points, err)
		}
		if level.Name != tc.want {
			t.Fatalf("ResolveLevel(%d) = %q, want %q", tc.points, level.Name, tc.want)
		}
		if level.MinimumPoints > tc.points {
			t.Fatalf("ResolveLevel(%d) returned threshold above the point total: %+v", tc.points, level)
		}
	}
}

func TestResolveLevelMonotonic(t *testing.T) {
	thresholds := ladder()

	previousMinimum := -1
	for points := 0; points <= 1200; points += 25 {
		level, err := ResolveLevel(points, thresholds)
		if err != nil {
			t.Fatalf("ResolveLevel(%d) returned error: %v", points, err)
		}
		if level.MinimumPoints < previousMinimum {
			t.Fatalf("attained minimum decreased at %d points: %d < %d", points, level.MinimumPoints, previousMinimum)
		}
		previousMinimum = level.MinimumPoints
	}
}

func TestResolveLevelDeterministic(t *testing.T) {
	first, err := ResolveLevel(450, ladder())
	if err != nil {
		t.Fatalf("ResolveLevel returned error: %v", err)
	}
	second, err := ResolveLevel(450, ladder())
	if err != nil {
		t.Fatalf("ResolveLevel returned error: %v", err)
	}
	if first != second {
		t.Fatalf("ResolveLevel is not deterministic: %+v vs %+v", first, second)
	}
}

func TestResolveLevelEqualMinimumLaterWins(t *testing.T) {
	thresholds := []LevelThreshold{
		{Name: "Beginner", MinimumPoints: 0},
		{Name: "Apprentice", MinimumPoints: 100},
		{Name: "Journeyman", MinimumPoints: 100},
	}

	level, err := ResolveLevel(100, thresholds)
	if err != nil {
		t.Fatalf("ResolveLevel returned error: %v", err)
	}
	if level.Name != "Journeyman" {
		t.Fatalf("tie-break returned %q, want later-added %q", level.Name, "Journeyman")
	}
}

func TestResolveLevelNegativePoints(t *testing.T) {
	if _, err := ResolveLevel(-1, ladder()); err == nil {
		t.Fatal("ResolveLevel accepted negative points")
	}
}

func TestResolveLevelMisconfiguredLadder(t *testing.T) {
	if _, err := ResolveLevel(10, nil); !errors.Is(err, ErrThresholdsMisconfigured) {
		t.Fatalf("empty ladder: got %v, want ErrThresholdsMisconfigured", err)
	}

	noZero := []LevelThreshold{{Name: "Intermediate", MinimumPoints: 300}}
	if _, err := ResolveLevel(500, noZero); !errors.Is(err, ErrThresholdsMisconfigured) {
		t.Fatalf("missing zero minimum: got %v, want ErrThresholdsMisconfigured", err)
	}
}

func TestPointsIntoLevel(t *testing.T) {
	cases := []struct {
		points int
		want   int
	}{
		{points: 0, want: 0},
		{points: 250, want: 250},
		{points: 300, want: 0},
		{points: 350, want: 50},
		{points: 1400, want: 400},
	}

	for _, tc := range cases {
		got, err := PointsIntoLevel(tc.points, ladder())
		if err != nil {
			t.Fatalf("PointsIntoLevel(%d) returned error: %v", tc.points, err)
		}
		if got != tc.want {
			t.Fatalf("PointsIntoLevel(%d) = %d, want %d", tc.points, got, tc.want)
		}
	}
}

func TestPointsIntoLevelMisconfigured(t *testing.T) {
	if _, err := PointsIntoLevel(10, nil); !errors.Is(err, ErrThresholdsMisconfigured) {
		t.Fatalf("got %v, want ErrThresholdsMisconfigured", err)
	}
}

func TestValidateLadder(t *testing.T) {
	if err := ValidateLadder(ladder()); err != nil {
		t.Fatalf("valid ladder rejected: %v", err)
	}

	cases := []struct {
		name       string
		thresholds []LevelThreshold
	}{
		{name: "empty", thresholds: nil},
		{name: "no zero minimum", thresholds: []LevelThreshold{{Name: "Expert", MinimumPoints: 1000}}},
		{name: "duplicate name", thresholds: []LevelThreshold{{Name: "Beginner", MinimumPoints: 0}, {Name: "Beginner", MinimumPoints: 100}}},
		{name: "duplicate minimum", thresholds: []LevelThreshold{{Name: "Beginner", MinimumPoints: 0}, {Name: "Starter", MinimumPoints: 0}}},
		{name: "negative minimum", thresholds: []LevelThreshold{{Name: "Beginner", MinimumPoints: 0}, {Name: "Broken", MinimumPoints: -5}}},
		{name: "empty name", thresholds: []LevelThreshold{{Name: "", MinimumPoints: 0}}},
	}

	for _, tc := range cases {
		if err := ValidateLadder(tc.thresholds); !errors.Is(err, ErrThresholdsMisconfigured) {
			t.Fatalf("%s: got %v, want ErrThresholdsMisconfigured", tc.name, err)
		}
	}
}
