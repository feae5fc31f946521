package port

import (
	"context"
	"time"
)

// RateLimitStore persists request attempts for sliding window rate limiting.
type RateLimitStore interface {
	RecordAttempt(ctx context.Context, identifier string, at time.Time) error
	CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error)
	TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error
	OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error)
}
