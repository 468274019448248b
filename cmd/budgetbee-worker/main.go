package main

import (
	"context"
	"os"
	"time"

	"budgetbee/internal/cli"
	"budgetbee/internal/export"
	applog "budgetbee/internal/log"
	"budgetbee/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting budgetbee report worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if !cfg.SheetsConfigured() {
		logger.Error("Google Sheets export is not configured; set GOOGLE_SPREADSHEET_ID and OAuth credentials")
		os.Exit(1)
	}

	store := cli.InitStore(logger, cfg)
	defer store.Close()

	exporter, err := export.New(context.Background(), cfg)
	if err != nil {
		logger.Error("Failed to initialize Sheets exporter", "error", err)
		os.Exit(1)
	}

	reportWorker := worker.NewReportWorker(store, exporter, cfg.ReportBatchSize,
		applog.New(applog.DefaultConfig()))

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	logger.Info("Report worker running",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue,
		"batch_size", cfg.ReportBatchSize)

	if err := reportWorker.Run(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue); err != nil {
		logger.Error("Report worker failed", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Report worker stopped gracefully")
}
