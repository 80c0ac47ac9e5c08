package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trafficpool_backend/internal/adapters/storage"
	"trafficpool_backend/internal/capture"
	"trafficpool_backend/internal/events"
	"trafficpool_backend/internal/exports"
	apphttp "trafficpool_backend/internal/http"
	"trafficpool_backend/internal/http/router"
	"trafficpool_backend/internal/scheduler"
	"trafficpool_backend/internal/trafficpool"
	"trafficpool_backend/internal/trafficpool/handler"
	"trafficpool_backend/platform/config"
	"trafficpool_backend/platform/db"
	"trafficpool_backend/platform/logger"
	"trafficpool_backend/platform/phone"
	"trafficpool_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	phone.SetDefaultRegion(cfg.GetPhoneRegion())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	redisClient := initRedis(cfg, log)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// Job queue client for operator-triggered engine passes
	var passSched handler.PassScheduler
	if cfg.GetRedisURL() != "" {
		schedClient, err := scheduler.NewClient(cfg)
		if err != nil {
			log.Error("failed to initialize pass scheduler", "error", err)
			panic("failed to initialize pass scheduler: " + err.Error())
		}
		defer func() { _ = schedClient.Close() }()
		passSched = schedClient
	} else {
		log.Warn("REDIS_URL not configured; on-demand engine passes disabled")
	}

	// Object storage for CSV exports (MinIO)
	var storageSvc storage.StorageService
	if cfg.IsMinIOEnabled() {
		svc, err := storage.NewMinIOService(cfg)
		if err != nil {
			log.Error("failed to initialize storage service", "error", err)
			panic("failed to initialize storage service: " + err.Error())
		}
		if err := withRetry(ctx, log, "ensure exports bucket", 5, 2*time.Second, func() error {
			return svc.EnsureBucketExists(ctx, cfg.GetMinioBucketExports())
		}); err != nil {
			log.Error("failed to ensure exports bucket exists", "error", err, "bucket", cfg.GetMinioBucketExports())
			panic("failed to ensure exports bucket exists: " + err.Error())
		}
		storageSvc = svc
		log.Info("storage service initialized", "exportsBucket", cfg.GetMinioBucketExports())
	} else {
		log.Warn("MinIO not configured; lead exports disabled")
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	trafficPoolModule, err := trafficpool.NewModule(ctx, pool, passSched, eventBus, val, log)
	if err != nil {
		log.Error("failed to initialize traffic pool module", "error", err)
		panic("failed to initialize traffic pool module: " + err.Error())
	}
	trafficPoolModule.RegisterHandlers(eventBus, log)

	captureModule := capture.NewModule(
		trafficPoolModule.Store(),
		trafficPoolModule.Repository(),
		redisClient,
		cfg.GetIngestDedupeTTL(),
		cfg,
		eventBus,
		val,
		log,
	)

	exportsModule := exports.NewModule(trafficPoolModule.Service(), storageSvc, cfg.GetMinioBucketExports(), val, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			trafficPoolModule,
			captureModule,
			exportsModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initRedis(cfg config.RedisConfig, log *logger.Logger) *redis.Client {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; ingest dedup disabled")
		return nil
	}

	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		log.Error("failed to parse redis url", "error", err)
		return nil
	}

	return redis.NewClient(opt)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
