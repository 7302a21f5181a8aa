// Package main - точка входа HTTP-сервиса движка прогрессии.
//
// Сервис принимает события пользователя (просмотры, инструменты, оценки),
// начисляет очки и значки, ведёт серии и сохраняет снапшоты прогресса
// в PostgreSQL или SQLite. Уведомления о значках и уровнях уходят в лог
// и в Redis pub/sub.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alem-hub/progression-engine/config"
	"github.com/alem-hub/progression-engine/internal/application/progression"
	"github.com/alem-hub/progression-engine/internal/domain/progress"
	"github.com/alem-hub/progression-engine/internal/domain/shared"
	"github.com/alem-hub/progression-engine/internal/infrastructure/catalog"
	"github.com/alem-hub/progression-engine/internal/infrastructure/messaging"
	"github.com/alem-hub/progression-engine/internal/infrastructure/persistence/postgres"
	"github.com/alem-hub/progression-engine/internal/infrastructure/persistence/redis"
	"github.com/alem-hub/progression-engine/internal/infrastructure/persistence/sqlite"
	"github.com/alem-hub/progression-engine/internal/infrastructure/scheduler"
	"github.com/alem-hub/progression-engine/internal/infrastructure/scheduler/jobs"
	httpapi "github.com/alem-hub/progression-engine/internal/interface/http"
	"github.com/alem-hub/progression-engine/pkg/circuitbreaker"
	"github.com/alem-hub/progression-engine/pkg/logger"
	"github.com/alem-hub/progression-engine/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting progression engine",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"storage", cfg.Storage.Driver,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. КАТАЛОГ УРОВНЕЙ, ЗНАЧКОВ И ДОСТИЖЕНИЙ
	// ─────────────────────────────────────────────────────────────────────────
	cat, err := catalog.LoadOrDefault(cfg.Progression.CatalogPath)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	log.Info("catalog loaded",
		"path", cfg.Progression.CatalogPath,
		"levels", cat.Levels().MaxLevel(),
		"badges", len(cat.Badges()),
		"achievements", len(cat.Achievements()),
	)

	health := httpapi.NewHealthChecker(cfg.App.Version)
	health.SetTimeout(cfg.HTTP.HealthTimeout)

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ХРАНИЛИЩЕ СНАПШОТОВ
	// ─────────────────────────────────────────────────────────────────────────
	repo, closeStore, err := openStore(ctx, cfg, log, health)
	if err != nil {
		return err
	}
	defer closeStore()

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REDIS (опционально): кэш снапшотов и pub/sub
	// ─────────────────────────────────────────────────────────────────────────
	var cache *redis.Cache
	var snapshotCache progress.SnapshotCache
	if !cfg.Redis.Disabled {
		cache, err = connectRedis(ctx, cfg, log)
		if err != nil {
			log.Warn("redis unavailable, cache and pub/sub disabled", "error", err)
			cache = nil
		} else {
			defer func() {
				log.Info("closing redis connection...")
				_ = cache.Close()
			}()
			snapshotCache = redis.NewSnapshotCache(cache)
			health.AddOptional("redis", cache.Ping)
			log.Info("redis connection established", "addr", cfg.Redis.Addr)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. EVENT BUS И УВЕДОМЛЕНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	busConfig := messaging.DefaultInMemoryEventBusConfig()
	busConfig.Logger = log
	busConfig.WorkerPoolSize = cfg.Progression.NotifyWorkers
	bus := messaging.NewInMemoryEventBus(busConfig)
	defer func() {
		log.Info("closing event bus...")
		_ = bus.Close()
	}()

	if err := bus.SubscribeAll(messaging.LogSink(log)); err != nil {
		return fmt.Errorf("failed to subscribe log sink: %w", err)
	}

	if cache != nil {
		sink, err := messaging.PubSubSink(messaging.PubSubSinkConfig{
			Publisher: cache,
			Channel: func(t shared.EventType) string {
				return redis.NotificationChannel(t.NotificationKind())
			},
			Breaker: circuitbreaker.New("redis-pubsub",
				circuitbreaker.WithOnStateChange(func(name string, from, to circuitbreaker.State) {
					log.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
				}),
			),
		})
		if err != nil {
			return fmt.Errorf("failed to create pub/sub sink: %w", err)
		}
		if err := bus.SubscribeAll(sink); err != nil {
			return fmt.Errorf("failed to subscribe pub/sub sink: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ДВИЖОК ПРОГРЕССИИ
	// ─────────────────────────────────────────────────────────────────────────
	engine, err := progression.NewEngine(progression.Config{
		Catalog:     cat,
		Repository:  repo,
		Cache:       snapshotCache,
		CacheTTL:    cfg.Redis.SnapshotTTL,
		Notifier:    bus,
		Identity:    progression.ContextIdentity{},
		Logger:      log,
		LoadTimeout: cfg.Progression.LoadTimeout,
		SaveTimeout: cfg.Progression.SaveTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ФОНОВЫЕ ЗАДАЧИ: выселение простаивающих сессий
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.New(log)
	if cfg.Progression.SessionIdleTimeout > 0 {
		job := jobs.NewEvictIdleSessionsJob(engine, cfg.Progression.SessionIdleTimeout, log)
		if err := sched.Register(job, cfg.Progression.EvictInterval); err != nil {
			return fmt.Errorf("failed to register job: %w", err)
		}
	}
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer func() { _ = sched.Stop() }()

	// ─────────────────────────────────────────────────────────────────────────
	// 9. HTTP СЕРВЕР
	// ─────────────────────────────────────────────────────────────────────────
	httpConfig := httpapi.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.APIKeyHash = cfg.HTTP.APIKeyHash
	httpConfig.Version = cfg.App.Version

	server := httpapi.NewServer(httpConfig, httpapi.Dependencies{
		Engine: engine,
		Health: health,
		Logger: log,
	})
	errCh := server.StartAsync()

	log.Info("progression engine is running",
		"addr", httpConfig.Address(),
		"api_key_required", httpConfig.APIKeyHash != "",
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 10. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	select {
	case <-ctx.Done():
		log.Info("received shutdown signal")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "error", err)
	}
	_ = sched.Stop()
	// Сессии сбрасывают последние изменения в хранилище до закрытия соединений.
	if err := engine.Close(shutdownCtx); err != nil {
		log.Error("engine shutdown failed", "error", err)
	}

	m := engine.Metrics()
	log.Info("shutdown completed",
		"saves_succeeded", m.SavesSucceeded,
		"saves_failed", m.SavesFailed,
		"unsynced_sessions", m.UnsyncedSessions,
	)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// openStore открывает хранилище согласно STORAGE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger, health *httpapi.HealthChecker) (progress.Repository, func(), error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		log.Info("connecting to database...")

		pgConfig := postgres.DefaultConfig()
		pgConfig.URL = cfg.Storage.DatabaseURL
		pgConfig.MaxConns = cfg.Storage.MaxConns
		pgConfig.MaxConnLifetime = cfg.Storage.ConnMaxLifetime

		conn, err := retry.Value(ctx, func(ctx context.Context) (*postgres.Connection, error) {
			conn, err := postgres.NewConnection(ctx, pgConfig)
			if err != nil && !postgres.IsConnectionError(err) {
				// Ошибка в URL или настройках пула: повтор не поможет.
				return nil, retry.Permanent(err)
			}
			return conn, err
		}, retry.WithOnRetry(logRetry(log, "postgres")))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		if cfg.Storage.AutoMigrate {
			applied, err := postgres.NewMigrator(conn).Migrate(ctx)
			if err != nil {
				conn.Close()
				return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info("database schema is up to date", "applied", applied)
		}

		health.AddCritical("postgres", conn.Ping)
		return postgres.NewSnapshotRepository(conn), func() {
			log.Info("closing database connection...")
			conn.Close()
		}, nil

	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		log.Info("sqlite store opened", "path", cfg.Storage.SQLitePath)

		health.AddCritical("sqlite", store.Ping)
		return store, func() {
			log.Info("closing sqlite store...")
			_ = store.Close()
		}, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

func connectRedis(ctx context.Context, cfg *config.Config, log *slog.Logger) (*redis.Cache, error) {
	redisConfig := redis.DefaultConfig()
	redisConfig.Addr = cfg.Redis.Addr
	redisConfig.Password = cfg.Redis.Password
	redisConfig.DB = cfg.Redis.DB

	return retry.Value(ctx, func(ctx context.Context) (*redis.Cache, error) {
		return redis.NewCache(ctx, redisConfig)
	}, retry.WithMaxAttempts(3), retry.WithOnRetry(logRetry(log, "redis")))
}

func logRetry(log *slog.Logger, target string) func(int, error, time.Duration) {
	return func(attempt int, err error, delay time.Duration) {
		log.Warn("connection attempt failed, retrying",
			"target", target,
			"attempt", attempt,
			"delay", delay.String(),
			"error", err,
		)
	}
}

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := cfg.Observability.LogLevel
	if cfg.App.Debug {
		level = "debug"
	}

	log := logger.New(logger.Options{
		Output:  os.Stdout,
		Level:   level,
		Format:  cfg.Observability.LogFormat,
		Service: cfg.App.Name,
	})
	slog.SetDefault(log)
	return log
}
