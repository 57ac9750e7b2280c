package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/weather-sampler-service/internal/app"
	"github.com/couchcryptid/weather-sampler-service/internal/config"
	"github.com/couchcryptid/weather-sampler-service/internal/observability"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env file is fine; the environment still applies.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	level, err := observability.ParseLevel(cfg.LogLevel)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(os.Stderr, level, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("weather sampler starting",
		"latitude", cfg.Latitude,
		"longitude", cfg.Longitude,
		"interval", cfg.AcquisitionInterval,
		"store", cfg.SQLitePath,
		"export_dir", cfg.ExportDir,
	)

	if err := app.Run(ctx, cfg, os.Stdin, os.Stdout, logger); err != nil {
		logger.Error("sampler failed", "error", err)
		stop()
		os.Exit(1)
	}
}
