// Package repositories selects the persistence backend at startup.
package repositories

import (
	"context"
	"fmt"

	"menuforge/internal/config"
	"menuforge/internal/pkg/logger"
	"menuforge/internal/ports"
	"menuforge/internal/repositories/cache"
	"menuforge/internal/repositories/jsonfile"
	"menuforge/internal/repositories/postgres"
)

// Open returns the postgres backend when cfg.DatabaseURL is set and the JSON
// file backend under cfg.DataDir otherwise. A non-nil kv adds the Redis
// template cache in front of either.
func Open(ctx context.Context, cfg config.Config, kv cache.KV, log *logger.Logger) (ports.Store, error) {
	var (
		store ports.Store
		err   error
	)
	if cfg.DatabaseURL != "" {
		store, err = postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
	} else {
		store, err = jsonfile.Open(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open file store: %w", err)
		}
	}
	log.Info("store opened", "backend", store.Backend())

	if kv != nil {
		store = cache.New(store, kv, log)
	}
	return store, nil
}
