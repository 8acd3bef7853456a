package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"keswan/internal/amqp"
	"keswan/internal/cli"
	"keswan/internal/config"
	"keswan/internal/log"
	"keswan/internal/sheets/google"
	"keswan/internal/storage"
	"keswan/internal/worker"
)

const referenceSyncInterval = 24 * time.Hour

func main() {
	cfg, logger := cli.LoadAndValidateConfig((*config.Config).ValidateWorker)
	logger.Info("Starting keswan-worker", log.FieldOperation, log.OpStartup)

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, nil)

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err)
	}
	defer app.Close()

	sheetsClient, err := google.New(ctx, cli.GoogleOptions(cfg), logger)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize Google Sheets client", err)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	// Reference lists only persist in SQLite; the memory backend reseeds
	// from files on every start.
	if repo, ok := app.Backend.Store.(*storage.SQLiteRepository); ok {
		go worker.NewReferenceSync(sheetsClient, repo, logger).RunPeriodic(ctx, referenceSyncInterval)
	}

	amqpClient, err := amqp.DialWithRetry(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, 5, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}
	defer amqpClient.Close()

	if cfg.WorkerMetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", app.Metrics.Handler())
		metricsSrv := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server error", log.FieldError, err.Error())
			}
		}()
		defer metricsSrv.Close()
	}

	w := worker.NewExportWorker(app.Reports, sheetsClient, app.Metrics, logger)
	if err := w.Run(ctx, amqpClient); err != nil && !errors.Is(err, context.Canceled) {
		cli.Fatal(logger, "Export worker stopped", err)
	}
	<-done
}
