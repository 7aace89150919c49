// Package cli provides the process setup shared by cmd/finanzas and
// cmd/ledger-worker.
package cli

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finanzas/internal/amqp"
	"finanzas/internal/backend"
	"finanzas/internal/config"
	applog "finanzas/internal/log"
)

// SetupLogger builds the process logger for level and installs it as the
// slog default, so packages logging through slog share its handler.
func SetupLogger(level string) *applog.Logger {
	lvl := applog.ParseLevel(level)
	logger := applog.New(applog.Config{
		Level:     lvl,
		Component: applog.ComponentApp,
		Handler:   applog.NewTextHandler(os.Stdout, lvl),
	})
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile reads .env when present. Deployed processes get their
// environment from the platform, so a missing file is fine.
func LoadEnvFile() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		applog.Default().Warn("Ignoring unreadable .env file", applog.FieldError, err)
	}
}

// LoadAndValidateConfig exits the process when the environment is invalid.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		// LOG_LEVEL may itself be the bad value, so use the default logger.
		applog.Default().Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// OpenStore creates the configured ledger store or exits the process.
func OpenStore(ctx context.Context, logger *applog.Logger, cfg *config.Config) *backend.BackendResult {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}

	result, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Slog()).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize ledger store", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	return result
}

// OpenEvents connects to the broker. It returns nil when AMQP_URL is unset
// and exits the process when the broker is configured but unreachable.
func OpenEvents(logger *applog.Logger, cfg *config.Config) *amqp.Client {
	if cfg.AMQPURL == "" {
		logger.Info("Ledger events disabled - no AMQP_URL provided")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Connected to AMQP broker", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. After
// the signal, cleanup runs with timeout to finish and then done is closed.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		defer close(done)
		<-ctx.Done()
		stop()
		logger.Info("Shutting down", applog.FieldOperation, applog.OpShutdown, "timeout", timeout)

		if cleanup == nil {
			return
		}
		cleanupCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		cleanup(cleanupCtx)
		if errors.Is(cleanupCtx.Err(), context.DeadlineExceeded) {
			logger.Warn("Shutdown did not finish in time", "timeout", timeout)
		}
	}()
	return ctx, done
}

// WaitForShutdown blocks until the signal arrived and cleanup finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
