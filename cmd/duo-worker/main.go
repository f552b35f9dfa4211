package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"duo/internal/amqp"
	"duo/internal/cache"
	"duo/internal/cli"
	"duo/internal/config"
	"duo/internal/log"
	gsheet "duo/internal/sheets/google"
	"duo/internal/worker"
)

func main() {
	os.Exit(run())
}

// run returns the exit code so deferred cleanup runs before the process exits.
func run() int {
	cfg, logger := cli.Bootstrap(log.ComponentWorker, (*config.Config).ValidateWorker)
	logger.Info("Starting duo-worker")

	ctx, stop := cli.SignalContext()
	defer stop()

	sqliteRepo, err := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	if err != nil {
		return 1
	}
	defer sqliteRepo.Close()

	sheetsClient, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
		CacheTTL:           cfg.SheetsCacheTTL,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err.Error())
		return 1
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
		return 1
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(sqliteRepo, sheetsClient, cfg.SyncBatchSize)

	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		// the periodic pass retries
		logger.Error("Failed startup sync check", log.FieldError, err.Error())
	}

	caches := cache.NewManager(logger.Logger.With(log.FieldComponent, log.ComponentCache))
	caches.Register(sheetsClient.Snapshots())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeLedgerSync(gctx, syncWorker.HandleSyncMessage)
	})
	g.Go(func() error {
		return syncWorker.Run(gctx, cfg.SyncInterval)
	})
	g.Go(func() error {
		caches.Run(gctx, cfg.SyncInterval)
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err.Error())
		return 1
	}
	logger.Info("Worker shutdown complete")
	return 0
}
