// Command finboard-worker mirrors expense changes into Google Sheets.
package main

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"finboard/internal/amqp"
	"finboard/internal/cli"
	"finboard/internal/config"
	applog "finboard/internal/log"
	gsheet "finboard/internal/sheets/google"
	"finboard/internal/storage"
	"finboard/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, err := cli.LoadConfig((*config.Config).ValidateWorker)
	if err != nil {
		cli.Fatal(applog.New(applog.DefaultConfig()), "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)

	ctx, stop := cli.SignalContext()
	defer stop()
	logger.InfoContext(ctx, "Starting finboard-worker", "queue", cfg.AMQPQueue, "sheet", cfg.GoogleSheetName)

	repo, err := storage.NewSQLiteRepository(cfg.ExpensesDBPath)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize SQLite repository", err)
	}
	defer repo.Close()

	sheet, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		cli.Fatal(logger, "Failed to initialize Google Sheets client", err)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}
	defer client.Close()

	w := worker.NewSyncWorker(repo, sheet, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Missed events are recovered by a full pass; failures are not fatal.
		if _, err := w.StartupSync(gctx); err != nil {
			logger.ErrorContext(gctx, "Startup sync failed", applog.FieldError, err)
		}
		return nil
	})
	g.Go(func() error { return client.ConsumeExpenseEvents(gctx, w.HandleEvent) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		cli.Fatal(logger, "finboard-worker stopped with error", err)
	}
	logger.InfoContext(context.Background(), "finboard-worker shutdown complete")
}
