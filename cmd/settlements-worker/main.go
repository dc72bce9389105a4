package main

import (
	"context"
	"os"

	"settlements/internal/amqp"
	"settlements/internal/cli"
	"settlements/internal/log"
	gsheet "settlements/internal/sheets/google"
	"settlements/internal/triggers"
	"settlements/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting settlements-worker")
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.ShutdownContext(context.Background())
	defer stop()

	store := cli.OpenBackend(ctx, logger, cfg)
	defer func() {
		if err := store.Cleanup(); err != nil {
			logger.Error("Failed to close backend", log.FieldError, err)
		}
	}()

	opts := []triggers.Option{
		triggers.WithTimeout(cfg.TriggerTimeout),
		triggers.WithLogger(logger),
	}
	if cfg.LedgerEnabled() {
		ledger, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets ledger", log.FieldError, err)
			os.Exit(1)
		}
		opts = append(opts, triggers.WithLedger(ledger))
		logger.Info("Google Sheets ledger enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets ledger disabled, no GOOGLE_SPREADSHEET_ID provided")
	}
	dispatcher := triggers.NewDispatcher(triggers.New(store.Backend, opts...))

	var consumer worker.Consumer
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// Without a consumer the periodic sweep still covers every change.
			logger.Warn("AMQP unavailable at startup", log.FieldError, err)
		} else {
			defer client.Close()
			consumer = client
		}
	}

	w := worker.NewTriggerWorker(consumer, store.Backend, dispatcher, cfg.SweepInterval, cfg.SweepBatchSize)
	if err := w.Run(ctx); err != nil {
		logger.Error("Trigger worker stopped", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
