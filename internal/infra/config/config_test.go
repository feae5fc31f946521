package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "learning-tracker" {
		t.Fatalf("app name = %q, want learning-tracker", cfg.App.Name)
	}
	if cfg.Postgres.Port != 5432 {
		t.Fatalf("postgres port = %d, want 5432", cfg.Postgres.Port)
	}
	if cfg.Policy.MinLength != 8 {
		t.Fatalf("policy min length = %d, want 8", cfg.Policy.MinLength)
	}
	if cfg.Session.TTL != 24*time.Hour {
		t.Fatalf("session ttl = %s, want 24h", cfg.Session.TTL)
	}
	if cfg.RateLimit.RotationMaxAttempts != 5 {
		t.Fatalf("rotation max attempts = %d, want 5", cfg.RateLimit.RotationMaxAttempts)
	}
	if len(cfg.Kafka.Brokers) != 0 {
		t.Fatalf("kafka brokers = %v, want empty by default", cfg.Kafka.Brokers)
	}
	if cfg.Argon2.Memory != 65536 || cfg.Argon2.Iterations != 3 {
		t.Fatalf("unexpected argon2 defaults: %+v", cfg.Argon2)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TRACKER_APP_ENV", "production")
	t.Setenv("TRACKER_POLICY_MIN_LENGTH", "12")
	t.Setenv("TRACKER_SESSION_TTL", "2h")
	t.Setenv("TRACKER_RATE_LIMIT_ROTATION_MAX_ATTEMPTS", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Env != "production" {
		t.Fatalf("app env = %q, want production", cfg.App.Env)
	}
	if cfg.Policy.MinLength != 12 {
		t.Fatalf("policy min length = %d, want 12", cfg.Policy.MinLength)
	}
	if cfg.Session.TTL != 2*time.Hour {
		t.Fatalf("session ttl = %s, want 2h", cfg.Session.TTL)
	}
	if cfg.RateLimit.RotationMaxAttempts != 3 {
		t.Fatalf("rotation max attempts = %d, want 3", cfg.RateLimit.RotationMaxAttempts)
	}
}
