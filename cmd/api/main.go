package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/saturnino-fabrica-de-software/livegate/internal/api"
	"github.com/saturnino-fabrica-de-software/livegate/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/livegate/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/livegate/internal/audit"
	"github.com/saturnino-fabrica-de-software/livegate/internal/config"
	"github.com/saturnino-fabrica-de-software/livegate/internal/database"
	"github.com/saturnino-fabrica-de-software/livegate/internal/decision"
	"github.com/saturnino-fabrica-de-software/livegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/livegate/internal/liveness"
	"github.com/saturnino-fabrica-de-software/livegate/internal/locator"
	"github.com/saturnino-fabrica-de-software/livegate/internal/metrics"
	"github.com/saturnino-fabrica-de-software/livegate/internal/quality"
	"github.com/saturnino-fabrica-de-software/livegate/internal/repository"
	"github.com/saturnino-fabrica-de-software/livegate/internal/service"
	"github.com/saturnino-fabrica-de-software/livegate/internal/token"
	"github.com/saturnino-fabrica-de-software/livegate/internal/webhook"
	"github.com/saturnino-fabrica-de-software/livegate/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("starting Livegate API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("storage", cfg.StorageType),
		slog.String("locator", cfg.LocatorType),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, readyChecks, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	auditLogger := audit.NewSlogLogger(logger)

	faceLocator, err := locator.New(ctx, cfg, auditLogger)
	if err != nil {
		return fmt.Errorf("failed to create face locator: %w", err)
	}

	registry := liveness.NewRegistry(liveness.Thresholds{
		Blink:            cfg.BlinkThreshold,
		Smile:            cfg.SmileThreshold,
		Movement:         cfg.MovementThreshold,
		MovementVariance: cfg.MovementVarianceThreshold,
		Spoof:            cfg.SpoofThreshold,
		Liveness:         cfg.LivenessThreshold,
	})
	scorer := quality.NewScorer(quality.DefaultConfig())

	policy, err := decision.New(cfg.DecisionPolicy, cfg.AuthThreshold, cfg.QualityWeight)
	if err != nil {
		return fmt.Errorf("failed to create decision policy: %w", err)
	}

	picker, err := service.NewChallengePicker(cfg.ChallengeMode)
	if err != nil {
		return fmt.Errorf("failed to create challenge picker: %w", err)
	}

	tokens := token.NewService(cfg.TokenSecret, cfg.TokenIssuer)
	recorder := metrics.NewRecorder()
	hub := ws.NewHub()

	sinks := []service.EventSink{auditLogger, hub, recorder}

	var webhookWorker *webhook.Worker
	if cfg.WebhookURL != "" {
		notifier := webhook.NewService(webhook.Config{
			URL:    cfg.WebhookURL,
			Secret: cfg.WebhookSecret,
			Events: cfg.WebhookEvents,
		}, logger)
		sinks = append(sinks, notifier)
		webhookWorker = webhook.NewWorker(notifier, logger)
	}

	sessions := service.NewSessionService(
		store,
		registry,
		scorer,
		policy,
		tokens,
		service.SessionConfig{
			TTL:           cfg.SessionTTL,
			MaxAttempts:   cfg.SessionMaxAttempts,
			TokenValidity: cfg.TokenTTL,
			SubjectFormat: domain.SubjectFormat(cfg.SubjectFormat),
			SweepOnCreate: cfg.SessionSweepOnCreate,
		},
		service.WithChallengePicker(picker),
		service.WithEventSinks(sinks...),
		service.WithLogger(logger),
	)

	// Background workers
	go service.NewSweeper(sessions, logger, cfg.SessionSweepInterval).Run(ctx)
	if webhookWorker != nil {
		go webhookWorker.Run(ctx)
	}
	aggregator := metrics.NewAggregator(sessions, recorder, logger, cfg.MetricsInterval)
	go aggregator.Start(ctx)
	defer aggregator.Stop()

	deps := &api.Dependencies{
		Sessions:         sessions,
		Tokens:           tokens,
		Locator:          faceLocator,
		Liveness:         registry,
		Realtime:         liveness.NewRealTimeEvaluator(),
		Quality:          scorer,
		QualityThreshold: cfg.AuthThreshold,
		Hub:              hub,
		Recorder:         recorder,
		ReadyChecks:      readyChecks,
		CORSOrigins:      cfg.CORSOrigins,
		RateLimit: middleware.RateLimiterConfig{
			Max:         cfg.RateLimitMax,
			Window:      cfg.RateLimitWindow,
			PerEndpoint: middleware.AuthRateLimits(),
		},
	}
	router := api.NewRouter(logger, deps)
	router.Setup()

	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")
	if err := router.Shutdown(); err != nil {
		logger.Error("shutdown error", slog.Any("error", err))
	}

	logger.Info("server stopped")
	return nil
}

// openStore builds the configured session store along with its readiness
// checks and a close function.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.SessionRepositoryInterface, map[string]handler.Pinger, func(), error) {
	switch cfg.StorageType {
	case config.StoragePostgres:
		if cfg.AutoMigrate {
			if err := database.Migrate(ctx, cfg.DatabaseURL, logger); err != nil {
				return nil, nil, nil, fmt.Errorf("failed to migrate database: %w", err)
			}
		}

		pool, err := database.NewPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		checks := map[string]handler.Pinger{"postgres": handler.PingFunc(pool.Ping)}
		return repository.NewPostgresSessionStore(pool), checks, pool.Close, nil

	case config.StorageRedis:
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.RedisAddr},
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		checks := map[string]handler.Pinger{
			"redis": handler.PingFunc(func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			}),
		}
		closeFn := func() { _ = client.Close() }
		return repository.NewRedisSessionStore(client, cfg.RedisNamespace), checks, closeFn, nil

	default:
		return repository.NewMemorySessionStore(), nil, func() {}, nil
	}
}
