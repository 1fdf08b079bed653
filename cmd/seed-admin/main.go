// Command seed-admin creates the "admin" account from ADMIN_PASSWORD or
// repairs its role. Set RESET_ADMIN_PASSWORD=1 to overwrite the stored hash.
package main

import (
	"context"
	"os"
	"strings"
	"time"

	"menuforge/internal/auth"
	"menuforge/internal/config"
	"menuforge/internal/pkg/logger"
	"menuforge/internal/repositories"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewDefault().LogFatal("invalid configuration", err)
	}
	log := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: "menuforge-seed-admin",
	})

	if cfg.AdminPassword == "" {
		log.LogFatal("ADMIN_PASSWORD is required", nil)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := repositories.Open(ctx, cfg, nil, log)
	if err != nil {
		log.LogFatal("failed to open store", err)
	}
	defer store.Close()

	reset := strings.TrimSpace(os.Getenv("RESET_ADMIN_PASSWORD")) == "1"
	svc := auth.NewService(store, auth.NewTokens(cfg.JWTSecret, cfg.JWTExpiresIn), cfg.AdminPassword)

	action, err := svc.EnsureAdmin(ctx, reset)
	if err != nil {
		log.LogFatal("failed to seed admin", err)
	}
	log.Info("admin account seeded",
		"action", string(action),
		"backend", store.Backend(),
		"reset", reset,
	)
}
