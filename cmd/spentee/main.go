package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"spentee/internal/amqp"
	"spentee/internal/config"
	apphttp "spentee/internal/http"
	"spentee/internal/log"
	"spentee/internal/storage"
)

func main() {
	// Load .env for local development; absence is fine in production.
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	store, err := storage.Open(cfg.DataBackend, cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open store", "error", err, "backend", cfg.DataBackend, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()
	logger.Info("Store ready", "backend", cfg.DataBackend)

	// The broker is optional: without it rows stay queued until the
	// worker's pending scan picks them up.
	var notifier apphttp.SyncNotifier
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		notifier = amqpClient
		logger.Info("AMQP notifier ready", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:        ":" + cfg.Port,
		Store:       store,
		Notifier:    notifier,
		JWTSecret:   cfg.JWTSecret,
		TokenExpiry: cfg.TokenExpiry,
		SharedData:  cfg.SharedData,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting spentee server", "port", cfg.Port, "shared_data", cfg.SharedData)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
