// Package cli holds the start-up steps shared by cmd/flatshare,
// cmd/sheets-worker and cmd/flatshare-cli.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"flatshare/internal/amqp"
	"flatshare/internal/config"
	"flatshare/internal/core"
	applog "flatshare/internal/log"
)

// SetupLogger installs a text logger at the given level as the default
// and returns it.
func SetupLogger(level slog.Level, component string) *applog.Logger {
	return SetupLoggerTo(os.Stdout, level, component)
}

// SetupLoggerTo is SetupLogger writing to w.
func SetupLoggerTo(w io.Writer, level slog.Level, component string) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     level,
		Component: component,
		Output:    w,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig loads the .env file and the environment, then installs a
// logger at the configured level for component.
func LoadConfig(component string) (*config.Config, *applog.Logger) {
	LoadEnvFile()
	cfg := config.Load()
	return cfg, SetupLogger(cfg.SlogLevel(), component)
}

// MustValidate exits the process when cfg is invalid.
func MustValidate(logger *slog.Logger, cfg *config.Config) {
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
}

// Household resolves the roster and grouping location. Both were checked
// by Validate, so failures exit.
func Household(logger *slog.Logger, cfg *config.Config) (core.Roster, *time.Location) {
	roster, err := cfg.Members()
	if err != nil {
		logger.Error("Invalid roster", "error", err)
		os.Exit(1)
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Invalid timezone", "error", err)
		os.Exit(1)
	}
	return roster, loc
}

// InitAMQP connects to the broker when one is configured. A connection
// failure is logged and yields nil so the caller runs without fan-out.
func InitAMQP(logger *slog.Logger, cfg *config.Config, queue string) *amqp.Client {
	if !cfg.AMQPEnabled() {
		logger.Info("AMQP not configured, change fan-out disabled")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, queue)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, continuing without fan-out", "error", err)
		return nil
	}
	logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", queue)
	return client
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM.
// cleanup runs first, bounded by timeout; done closes once it returns.
func GracefulShutdown(logger *slog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		cancel()

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
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
