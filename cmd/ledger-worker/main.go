package main

import (
	"context"
	"errors"
	"os"
	"time"

	"emitrack/internal/amqp"
	"emitrack/internal/cli"
	"emitrack/internal/log"
	gsheet "emitrack/internal/sheets/google"
	"emitrack/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentWorker)
	logger.Info("Starting ledger-worker")

	if err := cfg.ValidateSheets(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	cli.RequireSQLite(logger, cfg)

	ctx, stop := cli.SignalContext()
	defer stop()

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	sheetsClient, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleCredentialsJSON,
		CredentialsFile: cfg.GoogleCredentialsFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	if err := sheetsClient.EnsureHeader(ctx, time.Now().Year()); err != nil {
		logger.Warn("Could not prepare this year's sheet", log.FieldError, err)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(repo, sheetsClient)

	logger.Info("Consuming ledger sync messages",
		"queue", cfg.AMQPQueue,
		"prefetch", cfg.SyncPrefetch,
		"spreadsheet_id", cfg.GoogleSpreadsheetID)

	err = amqpClient.ConsumeLedgerSync(ctx, cfg.SyncPrefetch, syncWorker.HandleSyncMessage)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		return
	}
	logger.Info("Ledger-worker shutdown complete")
}
