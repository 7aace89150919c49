package main

import (
	"context"
	"errors"
	"os"
	"time"

	"finanzas/internal/cli"
	applog "finanzas/internal/log"
	"finanzas/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg.LogLevel)

	logger.Info("Starting ledger-worker", applog.FieldOperation, applog.OpStartup)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	result := cli.OpenStore(ctx, logger, cfg)
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Failed to close ledger store", applog.FieldError, err)
		}
	}()

	w := worker.NewConsistencyWorker(result.Store, logger)

	// Events lost while the worker was down are caught by the sweep.
	logger.Info("Performing startup consistency sweep...")
	if _, err := w.Sweep(ctx); err != nil {
		logger.Error("Startup sweep failed", applog.FieldError, err)
	}

	if cfg.SweepInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.SweepInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if _, err := w.Sweep(ctx); err != nil {
						logger.Error("Periodic sweep failed", applog.FieldError, err)
					}
				}
			}
		}()
	}

	client := cli.OpenEvents(logger, cfg)
	if client == nil {
		logger.Info("Running sweeps only - no event stream to consume", "interval", cfg.SweepInterval)
		cli.WaitForShutdown(ctx, done)
		return
	}
	defer client.Close()

	if err := client.ConsumeLedgerEvents(ctx, cfg.ConsumerPrefetch, w.HandleLedgerEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", applog.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("ledger-worker stopped")
}
