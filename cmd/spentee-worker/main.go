package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"spentee/internal/amqp"
	"spentee/internal/config"
	"spentee/internal/log"
	"spentee/internal/sheets"
	gsheet "spentee/internal/sheets/google"
	memsheet "spentee/internal/sheets/memory"
	"spentee/internal/storage"
	"spentee/internal/worker"
)

func main() {
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig()).WithComponent(log.ComponentWorker)
	log.SetDefault(logger)

	logger.Info("Starting spentee-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	store, err := storage.Open(cfg.DataBackend, cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var writer sheets.RowWriter
	if cfg.SheetExportEnabled() {
		client, err := gsheet.NewClient(ctx, gsheet.Options{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			OAuthClientJSON: cfg.GoogleOAuthClientJSON,
			OAuthClientFile: cfg.GoogleOAuthClientFile,
			OAuthTokenJSON:  cfg.GoogleOAuthTokenJSON,
			OAuthTokenFile:  cfg.GoogleOAuthTokenFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		writer = memsheet.New()
		logger.Info("Sheet export disabled - rows are drained to an in-memory sink")
	}

	syncWorker := worker.NewSyncWorker(store, writer, cfg.SyncBatchSize)

	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", "error", err)
	}

	if cfg.AMQPURL != "" {
		go func() {
			connect := func() (*amqp.Client, error) {
				return amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
			}
			if err := worker.Consume(ctx, connect, syncWorker); err != nil && err != context.Canceled {
				logger.Error("Message consumption failed", "error", err)
				cancel()
			}
		}()
	} else {
		logger.Info("AMQP disabled - relying on periodic pending scan only")
	}

	go func() {
		if err := syncWorker.Run(ctx, cfg.SyncInterval); err != nil && err != context.Canceled {
			logger.Error("Periodic sync loop failed", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()
	logger.Info("Worker shutdown complete")
}
