// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the mangashelf HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to Redis, or continue without presence and shared cache.
//  4. Connect to PostgreSQL and run migrations, or keep the audit trail in memory.
//  5. Build the content store client and load the library.
//  6. Wire HTTP handlers.
//  7. Start HTTP server with graceful shutdown.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/mangashelf/internal/admin"
	"github.com/taibuivan/mangashelf/internal/api"
	"github.com/taibuivan/mangashelf/internal/audit"
	"github.com/taibuivan/mangashelf/internal/auth"
	"github.com/taibuivan/mangashelf/internal/contentstore"
	"github.com/taibuivan/mangashelf/internal/imagehost"
	"github.com/taibuivan/mangashelf/internal/imaging"
	"github.com/taibuivan/mangashelf/internal/library"
	"github.com/taibuivan/mangashelf/internal/platform/config"
	"github.com/taibuivan/mangashelf/internal/platform/constants"
	"github.com/taibuivan/mangashelf/internal/platform/migration"
	pgstore "github.com/taibuivan/mangashelf/internal/platform/postgres"
	redisstore "github.com/taibuivan/mangashelf/internal/platform/redis"
	"github.com/taibuivan/mangashelf/internal/platform/sec"
	"github.com/taibuivan/mangashelf/internal/presence"
	"github.com/taibuivan/mangashelf/internal/reader"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	log := newLogger(slog.LevelInfo)
	log.Info("service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("repo", cfg.Store.Owner+"/"+cfg.Store.Repo),
	)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// ── 3. Redis (optional) ───────────────────────────────────────────────
	rdb := connectRedis(rootCtx, cfg, log)
	if rdb != nil {
		defer func() {
			if cerr := rdb.Close(); cerr != nil {
				log.Error("redis_close_failed", slog.Any("error", cerr))
			}
		}()
	}

	// ── 4. PostgreSQL (optional) ──────────────────────────────────────────
	pool := connectPostgres(rootCtx, cfg, log)
	if pool != nil {
		defer pool.Close()
	}

	trail := audit.NewMemoryStore(constants.AuditMemoryCapacity)
	recorder := audit.Tee(audit.NewLogRecorder(log), trail)
	var auditReader audit.Reader = trail
	if pool != nil {
		store := audit.NewPostgresStore(pool)
		recorder = audit.Tee(audit.NewLogRecorder(log), store)
		auditReader = store
	}

	// ── 5. Content Store & Library ────────────────────────────────────────
	storeClient := contentstore.NewClient(cfg.Store, contentstore.WithLogger(log))

	storeSource := library.StoreSource{Store: storeClient, Path: cfg.Store.ManifestPath}
	sources := []library.Source{storeSource}
	for _, url := range cfg.Mirror.LibraryURLs {
		sources = append(sources, library.HTTPSource{URL: url})
	}

	var cache library.Cache = &library.MemoryCache{}
	var tracker presence.Tracker = presence.NoopTracker{}
	if rdb != nil {
		cache = library.NewRedisCache(rdb)
		tracker = presence.NewRedisTracker(rdb)
	}

	catalog := library.NewCatalog(library.NewFetcher(sources, cache, log))
	if err := catalog.Refresh(rootCtx); err != nil {
		log.Error("library_initial_load_failed", slog.Any("error", err))
	}

	// ── 6. Auth ───────────────────────────────────────────────────────────
	tokens, err := sec.NewTokenService(cfg.JWTPrivKeyPath, cfg.JWTPubKeyPath, constants.AuthIssuer)
	must(log, err, "initialize jwt service")

	accounts := auth.NewStaticAccounts(cfg.AdminPasswordHash, cfg.UploaderPasswordHash)

	// ── 7. Domain Wiring ──────────────────────────────────────────────────
	resolver := reader.NewResolver(
		reader.NewHTTPProber(nil, log),
		reader.NewLayout(cfg.Mirror, cfg.Store.ContentRoot),
		log,
	)

	adminService := admin.NewService(
		storeClient,
		imaging.NewTransformer(imaging.WebPEncoder{}),
		admin.NewState(),
		cfg.Store,
		admin.WithLogger(log),
	)
	dispatcher := admin.NewDispatcher(adminService, recorder, catalog, log, admin.WithPageCache(resolver))

	hub := presence.NewHub(tracker,
		presence.WithOriginCheck(func(origin string) bool { return cfg.IsDevelopment() || cfg.OriginAllowed(origin) }),
		presence.WithHubLogger(log),
	)

	liveness, readiness := api.NewHealthHandlers(healthChecks(catalog, pool, rdb), log)

	handlers := api.Handlers{
		Liveness:    liveness,
		Readiness:   readiness,
		Library:     library.NewHandler(catalog, storeSource, tracker),
		Reader:      reader.NewHandler(resolver, catalog, tracker),
		Presence:    presence.NewHandler(hub),
		Attachments: imagehost.NewHandler(imagehost.NewClient(cfg.ImageHostURL, cfg.ImageHostKey, imagehost.WithLogger(log))),
		Auth:        auth.NewHandler(auth.NewService(accounts, tokens, log)),
		Admin:       admin.NewHandler(dispatcher),
		Audit:       audit.NewHandler(auditReader),
	}

	server := api.NewServer(rootCtx, cfg, log, tokens, handlers)

	// ── 8. Graceful Shutdown ──────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_startup_failed", slog.Any("error", err))
	}

	log.Info("server_shutting_down", slog.Duration("timeout", constants.ShutdownTimeout))

	if err := server.Shutdown(constants.ShutdownTimeout); err != nil {
		log.Error("shutdown_failed", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server_stopped")
}

func newLogger(level slog.Level) *slog.Logger {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).
		With(slog.String("app", constants.AppName))
	slog.SetDefault(log)
	return log
}

// connectRedis returns nil when Redis is unconfigured or unreachable in time.
func connectRedis(ctx context.Context, cfg *config.Config, log *slog.Logger) *redis.Client {
	if cfg.RedisURL == "" {
		log.Warn("presence_disabled", slog.String("reason", "REDIS_URL not set"))
		return nil
	}

	startupCtx, cancel := context.WithTimeout(ctx, constants.PresenceStartupTimeout)
	defer cancel()

	client, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	if err != nil {
		log.Warn("presence_disabled", slog.Any("error", err))
		return nil
	}
	return client
}

// connectPostgres returns nil when Postgres is unconfigured; a configured but
// broken database stops startup.
func connectPostgres(ctx context.Context, cfg *config.Config, log *slog.Logger) *pgxpool.Pool {
	if cfg.DatabaseURL == "" {
		log.Info("audit_in_memory", slog.String("reason", "DATABASE_URL not set"))
		return nil
	}

	startupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")
	return pool
}

func healthChecks(catalog *library.Catalog, pool *pgxpool.Pool, rdb *redis.Client) []api.Check {
	checks := []api.Check{{
		Name: "library",
		Run: func() error {
			if !catalog.Loaded() {
				return errors.New("library not loaded")
			}
			return nil
		},
	}}

	if pool != nil {
		checks = append(checks, api.Check{Name: "postgres", Run: func() error {
			return pgstore.Ping(context.Background(), pool)
		}})
	}

	if rdb != nil {
		checks = append(checks, api.Check{Name: "redis", Optional: true, Run: func() error {
			return redisstore.Ping(context.Background(), rdb)
		}})
	}

	return checks
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
