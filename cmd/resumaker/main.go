package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"resumaker/internal/cli"
	"resumaker/internal/config"
	"resumaker/internal/errors"
)

func main() {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logging
	logger, err := errors.New(cfg.App.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if err := config.ApplyVaultSecrets(cfg, logger); err != nil {
		logger.LogError(err, "Failed to load secrets from Vault")
		os.Exit(1)
	}

	// Only the log level is applied live; everything else needs a restart.
	level := cfg.App.LogLevel
	config.Watch(func(updated *config.Config) {
		if updated.App.LogLevel == level {
			return
		}
		if err := logger.SetLevel(updated.App.LogLevel); err != nil {
			logger.Warn("Ignoring log level change", "error", err)
			return
		}
		logger.Info("Log level changed", "from", level, "to", updated.App.LogLevel)
		level = updated.App.LogLevel
	})

	logger.Debug("Starting resumaker",
		"version", cli.Version,
		"log_level", cfg.App.LogLevel,
		"backend_url", cfg.Client.BaseURL)

	// Execute command with cancellable context
	if err := cli.Execute(ctx, cfg, logger); err != nil {
		logger.LogError(err, "Application execution failed")
		fmt.Fprintln(os.Stderr, errors.UserMessage(err))
		os.Exit(1)
	}
}
