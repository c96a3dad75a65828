package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meowbet/core/internal/app"
	"github.com/meowbet/core/internal/auth"
	"github.com/meowbet/core/internal/guard"
	"github.com/meowbet/core/internal/infra"
	"github.com/meowbet/core/internal/projection"
	"github.com/meowbet/core/internal/repository"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// backend is a store the API can both settle against and relay events from.
type backend interface {
	repository.Store
	repository.Outbox
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	rules, err := cfg.Rules()
	if err != nil {
		return err
	}
	startingBalance, err := cfg.StartingBalanceCents()
	if err != nil {
		return err
	}
	jackpotFloor, err := cfg.JackpotFloorUnits()
	if err != nil {
		return err
	}

	// Storage
	var store backend
	switch cfg.StoreDriver {
	case "memory":
		logger.Warn("using in-memory store; state is lost on restart")
		mem := repository.NewMemoryStore()
		if !cfg.KafkaEnabled {
			logger.Warn("no outbox relay configured; keeping only the newest events",
				"limit", cfg.MemoryOutboxLimit)
			mem.SetOutboxLimit(cfg.MemoryOutboxLimit)
		}
		store = mem
	default:
		if cfg.AutoMigrate {
			if err := infra.RunMigrations(cfg.DSN(), cfg.MigrationsDir, logger); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
		}
		pool, err := infra.NewPostgresPool(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		logger.Info("connected to postgres")
		store = repository.NewPGStore(pool)
	}

	// Projections and guards: Redis when configured, in-process otherwise.
	var (
		projections projection.Store = projection.NewInMemoryStore()
		limiter     guard.Limiter    = guard.NewRateLimiter(cfg.BetRateLimit, cfg.BetRateWindow)
		deduper     guard.Deduper    = guard.NewIdempotencyGuard(cfg.IdempotencyTTL)
	)
	if cfg.RedisURL != "" {
		rdb, err := infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()
		logger.Info("connected to redis")
		projections = projection.NewRedisStore(rdb, "meowbet:")
		limiter = guard.NewRedisRateLimiter(rdb, cfg.BetRateLimit, cfg.BetRateWindow, logger)
		deduper = guard.NewRedisIdempotencyGuard(rdb, cfg.IdempotencyTTL, logger)
	}

	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTPlayerExpiry, cfg.JWTAdminExpiry)

	router, err := app.NewRouter(app.RouterDeps{
		Store:           store,
		Projections:     projections,
		Limiter:         limiter,
		Deduper:         deduper,
		JWTMgr:          jwtMgr,
		Logger:          logger,
		Rules:           rules,
		StartingBalance: startingBalance,
		JackpotFloor:    jackpotFloor,
		CORSOrigin:      cfg.CORSAllowedOrigins,
	})
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	// In-process relay; the memory store has no other reader for its outbox.
	if cfg.KafkaEnabled {
		producer := infra.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaEnabled, logger)
		defer producer.Close()
		infra.NewOutboxPoller(store, producer, nil, cfg.OutboxPoll, logger).Start(ctx)
	}

	// Start server
	addr := fmt.Sprintf(":%d", cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "addr", addr, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	// Shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
