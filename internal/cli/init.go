// Package cli provides common CLI initialization utilities shared by
// cmd/finbot and cmd/finbot-mirror.
package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"

	"finbot/internal/config"
	applog "finbot/internal/log"
)

const sentryFlushTimeout = 2 * time.Second

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the component logger from the configured level and
// format and makes it the default logger.
func SetupLogger(cfg *config.Config, component string) *slog.Logger {
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Component: component,
		Format:    cfg.LogFormat,
		Output:    os.Stdout,
	})
	applog.SetDefault(logger)
	return logger.Logger
}

// LoadAndValidateConfig reads the accounts file into cfg and validates it.
// Exits the process on failure.
func LoadAndValidateConfig(logger *slog.Logger, cfg *config.Config) *config.Config {
	if err := cfg.LoadAccountsFile(); err != nil {
		logger.Error("Failed to load accounts file", "error", err, "path", cfg.AccountsFile)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitSentry enables error reporting when a DSN is configured. The returned
// function flushes buffered events and is safe to call either way.
func InitSentry(logger *slog.Logger, cfg *config.Config, release string) func() {
	if cfg.SentryDSN == "" {
		return func() {}
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     release,
	})
	if err != nil {
		// Reporting is optional, keep running without it.
		logger.Error("Failed to initialize Sentry", "error", err)
		return func() {}
	}
	logger.Info("Sentry error reporting enabled", "environment", cfg.SentryEnvironment)
	return func() { sentry.Flush(sentryFlushTimeout) }
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *slog.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup()
			}
			close(finished)
		}()

		select {
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		case <-finished:
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}

// IsShutdown reports whether err only says the process is stopping.
func IsShutdown(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}
