package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/app"
	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/config"
	"github.com/rgdonohue/latin-america-fishing-crime-reporting/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("cannot start", "error", err)
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}
