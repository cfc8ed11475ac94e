package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gamezone/internal/amqp"
	"gamezone/internal/cli"
	gzlog "gamezone/internal/log"
	"gamezone/internal/sheets"
	"gamezone/internal/worker"
)

const sessionPurgeInterval = 15 * time.Minute

func main() {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	logger, closer := cli.SetupLogger(cfg)
	defer closer.Close()
	logger = logger.WithComponent(gzlog.ComponentWorker)

	logger.Info("Starting gamezone-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	db, err := cli.OpenStorage(logger, cfg.SQLiteDBPath)
	if err != nil {
		os.Exit(1)
	}
	defer db.Close()

	// The activity sheet is an optional mirror of the journal.
	var appender sheets.ActivityAppender
	sheetsClient, err := cli.InitSheets(context.Background(), logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	if sheetsClient != nil {
		appender = sheetsClient
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	journal := worker.NewJournalWorker(db, appender)

	ctx := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		logger.Info("Shutting down worker...")
	})

	consumeDone := make(chan struct{})
	go func() {
		defer close(consumeDone)
		if err := amqpClient.ConsumeMutations(ctx, journal.HandleMutation); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
		}
	}()

	// SQLite sessions expire lazily on read; sweep the rest.
	go worker.RunPeriodic(ctx, "purge_sessions", sessionPurgeInterval, func(ctx context.Context) error {
		return worker.PurgeSessions(ctx, db)
	})

	select {
	case <-ctx.Done():
	case <-consumeDone:
		logger.Warn("Consumer stopped, exiting")
	}

	select {
	case <-consumeDone:
		logger.Info("Worker shutdown complete")
	case <-time.After(5 * time.Second):
		logger.Warn("Shutdown timeout reached")
	}
}
