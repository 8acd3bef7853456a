// Package cli provides the initialization shared by cmd/keswan,
// cmd/keswan-worker and cmd/keswan-export.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"keswan/internal/backend"
	"keswan/internal/cache"
	"keswan/internal/config"
	"keswan/internal/log"
	"keswan/internal/metrics"
	"keswan/internal/services"
	"keswan/internal/sheets/google"
)

// SetupLogger builds the process logger at level and installs it as the
// slog default.
func SetupLogger(level string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig loads .env, then the environment, and checks the result with
// validate (Config.Validate when nil).
func LoadConfig(validate func(*config.Config) error) (*config.Config, error) {
	LoadEnvFile()
	cfg := config.Load()
	if validate == nil {
		validate = (*config.Config).Validate
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(validate func(*config.Config) error) (*config.Config, *log.Logger) {
	cfg, err := LoadConfig(validate)
	if err != nil {
		logger := SetupLogger("info")
		logger.Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}
	return cfg, SetupLogger(cfg.LogLevel)
}

// App holds the services every entry point shares.
type App struct {
	Config  *config.Config
	Logger  *log.Logger
	Backend *backend.Result
	Metrics *metrics.Metrics
	Cache   *cache.Manager
	Reports *services.ReportService
	Records *services.RecordService
}

// NewApp opens the configured backend and wires the report and record
// services on top of it.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).Open(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	docs := cache.NewLRUCache[services.Document](cfg.ExportCacheSize, cfg.ExportCacheTTL)
	manager := cache.NewManager(logger)
	manager.Register(docs)

	reports := services.NewReportService(res.Store, res.Store, services.ReportOptions{
		Facilities:    cfg.Facilities,
		RequirePeriod: cfg.RequirePeriod,
		Cache:         docs,
		Metrics:       m,
		Logger:        logger,
	})
	return &App{
		Config:  cfg,
		Logger:  logger,
		Backend: res,
		Metrics: m,
		Cache:   manager,
		Reports: reports,
		Records: services.NewRecordService(res.Store, reports, logger),
	}, nil
}

// Close releases the backend.
func (a *App) Close() error {
	return a.Backend.Close()
}

// GoogleOptions maps the config to the Sheets client options.
func GoogleOptions(cfg *config.Config) google.Options {
	return google.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
		ReferenceSheet:  cfg.GoogleReferenceSheet,
	}
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. After
// the signal, cleanup runs with a context bounded by timeout; the returned
// channel closes once it finishes.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
			return
		}
		logger.Info("Shutdown complete", log.FieldOperation, log.OpShutdown)
	}()

	return ctx, done
}

// Fatal logs err and exits.
func Fatal(logger *log.Logger, msg string, err error) {
	logger.Error(msg, log.FieldError, fmt.Sprint(err))
	os.Exit(1)
}
