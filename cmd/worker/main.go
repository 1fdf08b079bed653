package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"menuforge/internal/config"
	"menuforge/internal/metrics"
	"menuforge/internal/pkg/logger"
	"menuforge/internal/pkg/shutdown"
	"menuforge/internal/repositories"
	"menuforge/internal/storage"
	"menuforge/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewDefault().LogFatal("invalid configuration", err)
	}

	log := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: "menuforge-worker",
		AddSource:   cfg.Log.Source,
	})

	if cfg.RedisAddr == "" {
		log.LogFatal("REDIS_ADDR is required by the publish worker", nil)
	}

	ctx := context.Background()
	shutdownMgr := shutdown.NewManager(log, 30*time.Second)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.LogFatal("failed to ping Redis", err)
	}
	shutdownMgr.RegisterCloser("redis", rdb)

	store, err := repositories.Open(ctx, cfg, rdb, log)
	if err != nil {
		log.LogFatal("failed to open store", err)
	}
	shutdownMgr.RegisterSimple("store", store.Close)

	sp, err := storage.NewProvider(ctx, cfg.Storage)
	if err != nil {
		log.LogFatal("failed to initialize storage provider", err)
	}

	m := metrics.New()
	if cfg.WorkerMetricsPort != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		server := &http.Server{
			Addr:        "0.0.0.0:" + cfg.WorkerMetricsPort,
			Handler:     mux,
			ReadTimeout: 10 * time.Second,
		}
		shutdownMgr.Register("metrics-server", server.Shutdown)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", "error", err.Error())
			}
		}()
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	// The loop is stopped before Redis and the store are closed.
	shutdownMgr.Register("worker", func(ctx context.Context) error {
		cancel()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	// A worker that stops on its own still goes through the orderly shutdown.
	failed, fail := context.WithCancel(ctx)
	defer fail()
	go func() {
		defer close(done)
		err := worker.Run(runCtx, worker.Deps{
			Store:     store,
			RDB:       rdb,
			QueueName: cfg.PublishQueue,
			SP:        sp,
			Metrics:   m,
			Log:       log,
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("worker stopped", "error", err.Error())
			fail()
		}
	}()

	log.Info("menuforge worker started",
		"queue", cfg.PublishQueue,
		"provider", sp.Provider(),
		"backend", store.Backend(),
	)
	shutdownMgr.WaitWithContext(failed)
}
