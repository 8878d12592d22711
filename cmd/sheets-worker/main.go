package main

import (
	"context"
	"errors"
	"os"

	"flatshare/internal/amqp"
	"flatshare/internal/backend"
	"flatshare/internal/cli"
	applog "flatshare/internal/log"
	gsheet "flatshare/internal/sheets/google"
	"flatshare/internal/worker"
)

func main() {
	cfg, logger := cli.LoadConfig(applog.ComponentWorker)
	cli.MustValidate(logger.Logger, cfg)
	if err := cfg.ValidateSheetsMirror(); err != nil {
		logger.Error("Sheets worker configuration invalid", "error", err)
		os.Exit(1)
	}
	roster, loc := cli.Household(logger.Logger, cfg)

	logger.Info("Starting sheets-worker", "backend", cfg.DataBackend, "queue", cfg.AMQPQueue)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	if bcfg.Type == backend.MemoryBackend {
		logger.Error("The sheets worker needs a shared backend, memory is per process")
		os.Exit(1)
	}
	store, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if store.Cleanup != nil {
			_ = store.Cleanup()
		}
	}()

	sheetsClient, err := gsheet.New(context.Background(), gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	}, roster, loc)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	if err := sheetsClient.EnsureHeader(context.Background()); err != nil {
		logger.Error("Failed to prepare sheet", "error", err, "sheet", cfg.GoogleSheetName)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	// Durable named queue so changes wait while the worker is down.
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(store.Backend, sheetsClient, cfg.SheetsReconcileInterval)

	ctx, done := cli.GracefulShutdown(logger.Logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		logger.Info("Shutting down worker...")
		if err := syncWorker.Stop(ctx); err != nil {
			logger.Error("Worker shutdown error", "error", err)
		}
	})

	if err := syncWorker.Start(ctx); err != nil {
		logger.Error("Failed to start sync worker", "error", err)
		os.Exit(1)
	}

	if err := amqpClient.Consume(ctx, syncWorker.HandleChange); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
