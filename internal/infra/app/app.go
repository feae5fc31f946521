// Package app assembles the core services from configuration. The module
// exposes a library-level boundary only: the consuming web or CLI layer
// embeds the assembled Application and translates typed results into its
// own responses.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/arklim/learning-tracker-core/internal/core/port"
	"github.com/arklim/learning-tracker-core/internal/infra/config"
	"github.com/arklim/learning-tracker-core/internal/infra/database"
	kafkainfra "github.com/arklim/learning-tracker-core/internal/infra/kafka"
	"github.com/arklim/learning-tracker-core/internal/infra/logger"
	redisinfra "github.com/arklim/learning-tracker-core/internal/infra/redis"
	"github.com/arklim/learning-tracker-core/internal/infra/security"
	"github.com/arklim/learning-tracker-core/internal/infra/telemetry"
	postgresrepo "github.com/arklim/learning-tracker-core/internal/repository/postgres"
	redisrepo "github.com/arklim/learning-tracker-core/internal/repository/redis"
	"github.com/arklim/learning-tracker-core/internal/usecase"
)

// Application bundles the assembled services and their infrastructure.
type Application struct {
	Levels   *usecase.LevelService
	Rotator  *usecase.RotationService
	Sessions *usecase.SessionService

	cfg      *config.AppConfig
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
}

// New wires configuration into a ready Application.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	argonCfg := security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	}
	if err := security.ConfigureArgon2(argonCfg); err != nil {
		pool.Close()
		return nil, fmt.Errorf("configure argon2: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)

	var producer *kafkainfra.Producer
	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	metrics, err := telemetry.NewMetrics(telemetry.MetricsOptions{Namespace: cfg.App.Name})
	if err != nil {
		_ = redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	policyOpts := []security.PolicyOption{
		security.WithMinLength(cfg.Policy.MinLength),
		security.WithMinStrengthScore(cfg.Policy.MinStrengthScore),
	}
	if cfg.Policy.PunctuationSet != "" {
		policyOpts = append(policyOpts, security.WithPunctuationSet(cfg.Policy.PunctuationSet))
	}
	policy := security.NewPasswordPolicy(policyOpts...)
	protected := security.NewProtectedAccounts(cfg.Policy.ProtectedAccounts)

	rateLimitWindow := cfg.RateLimit.WindowDuration
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: cfg.Redis.RateLimitPrefix,
		TTL:       rateLimitWindow * 2,
	})

	sessionService := usecase.NewSessionService(repos.Sessions, repos.Users, cfg.Session.TTL, eventPublisher, metrics, log).
		WithTokenByteLength(cfg.Session.TokenByteLength)

	levelService := usecase.NewLevelService(repos.Users, repos.Thresholds, eventPublisher, metrics, log)

	rotationService := usecase.NewRotationService(repos.Users, sessionService, repos.Audit, policy, eventPublisher, metrics, log).
		WithProtectedAccounts(protected).
		WithRateLimit(rateLimitStore, rateLimitWindow, cfg.RateLimit.RotationMaxAttempts)

	return &Application{
		Levels:   levelService,
		Rotator:  rotationService,
		Sessions: sessionService,
		cfg:      cfg,
		logger:   log,
		pool:     pool,
		redis:    redisClient,
		producer: producer,
	}, nil
}

// Close releases infrastructure resources in reverse dependency order.
func (a *Application) Close() {
	if a == nil {
		return
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("close kafka producer failed", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis failed", zap.Error(err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
