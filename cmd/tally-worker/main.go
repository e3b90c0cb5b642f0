package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tally/internal/amqp"
	"tally/internal/config"
	applog "tally/internal/log"
	"tally/internal/storage"
	"tally/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: "tally-worker"})
	applog.SetDefault(logger)

	logger.Info("Starting tally-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the backup worker")
		os.Exit(1)
	}

	snapshots, err := storage.NewSnapshotStore(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize snapshot store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer snapshots.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backupWorker := worker.NewBackupWorker(snapshots, cfg.BackupDir, cfg.BackupKeep, cfg.SnapshotKeep)

	// On startup, back up anything persisted while the worker was down.
	logger.Info("Performing startup backup check...")
	if err := backupWorker.CatchUp(ctx); err != nil {
		logger.Error("Startup backup check failed", "error", err)
		// Don't exit - continue with normal operation
	}

	go func() {
		if err := amqpClient.ConsumeLedgerChanged(ctx, backupWorker.HandleLedgerChanged); err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", "error", err)
			}
			cancel()
		}
	}()

	// Periodic catch-up for any missed events.
	ticker := time.NewTicker(cfg.BackupInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := backupWorker.CatchUp(ctx); err != nil {
					logger.Error("Periodic backup failed", "error", err)
				}
			}
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

	logger.Info("Shutting down worker...")
	cancel()

	// Give in-flight handlers a moment to finish.
	time.Sleep(2 * time.Second)
	logger.Info("Worker shutdown complete")
}
