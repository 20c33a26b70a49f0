package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"required-backend/internal/config"
	"required-backend/internal/logging"
	"required-backend/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		logging.New(logging.Config{}).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// 2. Logger
	log := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	ctx = logging.WithLogger(ctx, log)
	log.Info("config loaded", "port", cfg.Server.Port, "rules_dir", cfg.Rules.Dir, "metrics", cfg.Metrics.Enabled)

	// 3. Build and run the server
	srv, err := server.New(ctx, cfg)
	if err != nil {
		log.Error("failed to start", "error", err)
		os.Exit(1)
	}
	if err := srv.Run(ctx); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
