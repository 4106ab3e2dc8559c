package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"dorm/internal/amqp"
	"dorm/internal/cli"
	"dorm/internal/config"
	applog "dorm/internal/log"
	"dorm/internal/sheets"
	gsheet "dorm/internal/sheets/google"
	"dorm/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting dorm-worker")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	// The worker reads the snapshots the server persists and keeps its audit log there.
	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer sqliteRepo.Close()

	var exporter sheets.RosterExporter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		exporter = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	rosterWorker := worker.NewRosterWorker(sqliteRepo, sqliteRepo, exporter)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	if exporter != nil {
		logger.Info("Performing startup export...")
		if _, err := rosterWorker.Export(ctx, true); err != nil {
			logger.Error("Startup export failed", applog.FieldError, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeRosterEvents(gctx, rosterWorker.HandleRosterEvent)
	})
	if exporter != nil {
		g.Go(func() error {
			return rosterWorker.RunPeriodicExport(gctx, cfg.WorkerExportInterval)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped", applog.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
