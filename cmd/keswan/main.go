package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"keswan/internal/amqp"
	"keswan/internal/cli"
	"keswan/internal/config"
	apphttp "keswan/internal/http"
	"keswan/internal/log"
	"keswan/internal/services"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig((*config.Config).Validate)
	logger.Info("Starting keswan", log.FieldOperation, log.OpStartup, "backend", cfg.DataBackend)

	app, err := cli.NewApp(context.Background(), cfg, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err)
	}
	defer app.Close()

	// Export jobs are optional; without a broker the endpoint answers 503.
	var publisher services.JobPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, export jobs disabled", log.FieldError, err.Error())
		} else {
			publisher = amqpClient
			defer amqpClient.Close()
		}
	}
	jobs := services.NewExportJobs(publisher, cfg.RequirePeriod, app.Metrics, logger)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Records:    app.Records,
		Reports:    app.Reports,
		Jobs:       jobs,
		References: app.Backend.Store,
		Metrics:    app.Metrics,
		Logger:     logger,
	})
	srv.ReadTimeout = 15 * time.Second
	srv.WriteTimeout = 60 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
	})
	app.Cache.Start(ctx, time.Minute)

	logger.Info("Listening", "port", cfg.Port, "export_jobs", publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cli.Fatal(logger, "Server error", err)
	}

	<-done
	app.Cache.Wait()
	logger.Info("Server stopped gracefully")
}
