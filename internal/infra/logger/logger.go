package logger

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	lg   *zap.Logger
	once sync.Once
)

// New returns a singleton zap.Logger configured for structured logging.
func New(env string) (*zap.Logger, error) {
	var err error
	once.Do(func() {
		cfg := zap.NewProductionConfig()
		if env != "production" {
			cfg = zap.NewDevelopmentConfig()
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}

		lg, err = cfg.Build()
	})

	return lg, err
}

// WithContext attaches request scoped fields to the logger.
func WithContext(ctx context.Context) *zap.Logger {
	if lg == nil {
		lz, _ := zap.NewDevelopment()
		return lz
	}

	if ctx == nil {
		return lg
	}

	if val, ok := ctx.Value(RequestIDKey{}).(string); ok && val != "" {
		return lg.With(zap.String("request_id", val))
	}
	return lg
}

// RequestIDKey is used to store a request identifier on the context.
type RequestIDKey struct{}

// MaskIdentifier masks arbitrary sensitive identifiers before they reach
// audit detail or log output. Shows first and last 2 characters.
// Example: "bharath" -> "bh***th"
func MaskIdentifier(s string) string {
	if s == "" {
		return ""
	}

	if idx := strings.Index(s, "@"); idx > 0 {
		// Email-shaped identifiers keep their domain part readable.
		local := s[:idx]
		if len(local) <= 3 {
			return "***" + s[idx:]
		}
		return local[:3] + "***" + s[idx:]
	}

	if len(s) <= 4 {
		return "***"
	}
	return s[:2] + "***" + s[len(s)-2:]
}
