package main

import (
	"time"

	"budgetbee/internal/cli"
	"budgetbee/internal/core"
	"budgetbee/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting budgetbee projection worker")

	cfg := cli.LoadAndValidateConfig(logger)
	store := cli.InitStore(logger, cfg)
	defer store.Close()

	processor := services.NewProjectionProcessor(store)

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)

	logger.Info("Projection processor configured",
		"interval", cfg.ProjectionInterval,
		"backend", cfg.DataBackend)

	process := func() {
		count, err := processor.Process(ctx, core.DateOf(time.Now()))
		if err != nil {
			logger.Error("Projection processing failed", "error", err)
			return
		}
		if count > 0 {
			logger.Info("Due projections completed", "count", count)
		}
	}

	// One pass at startup, then on every tick.
	process()

	ticker := time.NewTicker(cfg.ProjectionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			cli.WaitForShutdown(ctx, done)
			logger.Info("Projection worker stopped gracefully")
			return
		case <-ticker.C:
			process()
		}
	}
}
