package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"menuforge/internal/auth"
	"menuforge/internal/config"
	"menuforge/internal/httpapi"
	"menuforge/internal/httpapi/handlers"
	"menuforge/internal/importer"
	"menuforge/internal/metrics"
	"menuforge/internal/pkg/logger"
	"menuforge/internal/pkg/shutdown"
	"menuforge/internal/repositories"
	"menuforge/internal/repositories/cache"
	"menuforge/internal/storage"
	"menuforge/internal/worker/queue"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewDefault().LogFatal("invalid configuration", err)
	}

	log := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: "menuforge-api",
		AddSource:   cfg.Log.Source,
	})

	log.Info("starting menuforge API",
		"version", version,
		"env", cfg.AppEnv,
	)

	ctx := context.Background()
	shutdownMgr := shutdown.NewManager(log, 30*time.Second)

	// Redis is optional: without it there is no template cache and no publishing.
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		log.Info("connecting to Redis")
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.LogFatal("failed to ping Redis", err)
		}
		shutdownMgr.RegisterCloser("redis", rdb)
		log.Info("Redis connected")
	} else {
		log.Warn("REDIS_ADDR not set, publishing disabled")
	}

	var kv cache.KV
	if rdb != nil {
		kv = rdb
	}
	store, err := repositories.Open(ctx, cfg, kv, log)
	if err != nil {
		log.LogFatal("failed to open store", err)
	}
	shutdownMgr.RegisterSimple("store", store.Close)

	log.Info("initializing storage provider")
	sp, err := storage.NewProvider(ctx, cfg.Storage)
	if err != nil {
		log.LogFatal("failed to initialize storage provider", err)
	}
	log.Info("storage provider initialized", "provider", sp.Provider())

	importOpts := []importer.Option{}
	if cfg.Sheets.Enabled() {
		srv, err := storage.NewSheetsService(ctx, cfg.Sheets)
		if err != nil {
			log.LogFatal("failed to initialize Sheets client", err)
		}
		importOpts = append(importOpts, importer.WithSheets(importer.NewSheetsAPI(srv)))
		log.Info("Sheets importer enabled")
	}

	authSvc := auth.NewService(store, auth.NewTokens(cfg.JWTSecret, cfg.JWTExpiresIn), cfg.AdminPassword)
	if action, err := authSvc.EnsureAdmin(ctx, false); err != nil {
		log.LogFatal("failed to bootstrap admin account", err)
	} else if action != auth.AdminUnchanged {
		log.Info("admin account bootstrapped", "action", string(action))
	}

	deps := httpapi.Deps{
		Store:          store,
		Auth:           authSvc,
		Importer:       importer.New(importOpts...),
		SP:             sp,
		Metrics:        metrics.New(),
		Log:            log,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
		ExposeStack:    !cfg.IsProduction(),
	}
	if rdb != nil {
		deps.Queue = queue.NewRedisQueue(rdb, cfg.PublishQueue)
		deps.Checks = map[string]handlers.HealthCheck{
			"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		}
	}
	router := httpapi.NewRouter(deps)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdownMgr.Register("http-server", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return server.Shutdown(ctx)
	})

	go func() {
		log.Info("HTTP server listening",
			"addr", server.Addr,
			"backend", store.Backend(),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.LogFatal("HTTP server failed", err)
		}
	}()

	shutdownMgr.Wait()
}
