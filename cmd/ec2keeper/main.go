package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ec2keeper/ec2keeper/internal/app"
	"github.com/ec2keeper/ec2keeper/internal/config"
	"github.com/ec2keeper/ec2keeper/internal/infra/health"
	"github.com/ec2keeper/ec2keeper/internal/infra/logging"
	"github.com/ec2keeper/ec2keeper/internal/infra/shutdown"
)

func main() {
	appStart := time.Now()
	// Start listening for signals immediately as first thing, before any other initialization
	signals := shutdown.Notify()
	ctx := context.Background()

	err := run(ctx, signals, appStart)
	if err != nil {
		slog.ErrorContext(ctx, "failed to run", "reason", err)
		// Give the logger some time to flush
		time.Sleep(1 * time.Second)
		os.Exit(1)
	}

	slog.InfoContext(ctx, "bye")
}

func run(ctx context.Context, signals <-chan os.Signal, appStart time.Time) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(cfg.LogFormat, cfg.LogLevel)
	appState := health.New(logger, appStart)

	application := app.New(logger, cfg, appState, signals)

	return application.Run(ctx)
}
