package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"idsearch/internal/app"
	"idsearch/internal/platform/config"
	"idsearch/internal/platform/logger"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in internal/lookup.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}
	if err := a.Serve(ctx); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
