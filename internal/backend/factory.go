package backend

import (
	"context"
	"fmt"
	"path/filepath"

	"keswan/internal/config"
	"keswan/internal/log"
	"keswan/internal/sheets"
	"keswan/internal/sheets/memory"
	"keswan/internal/storage"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	t := Type(appConfig.DataBackend)
	if !t.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}
	return Config{
		Type:          t,
		SQLiteDBPath:  appConfig.SQLiteDBPath,
		DataDirectory: appConfig.DataDir,
	}, nil
}

// Factory opens backends.
type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &Factory{logger: logger.WithComponent(log.ComponentBackend)}
}

// Open creates the store described by cfg.
func (f *Factory) Open(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.DataDirectory == "" {
		cfg.DataDirectory = "data"
	}
	switch cfg.Type {
	case SQLite:
		return f.openSQLite(ctx, cfg)
	case Memory:
		store := memory.NewFromFiles(cfg.DataDirectory)
		f.logger.InfoContext(ctx, "Initialized memory backend", "data_directory", cfg.DataDirectory)
		return &Result{Store: store}, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}

func (f *Factory) openSQLite(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.SQLiteDBPath == "" {
		return nil, fmt.Errorf("SQLite database path is required for sqlite backend")
	}
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	if err := seedMissingReferences(ctx, repo, cfg.DataDirectory); err != nil {
		repo.Close()
		return nil, err
	}
	f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
	return &Result{Store: repo, Cleanup: repo.Close}, nil
}

// seedMissingReferences fills empty reference lists from the seed files.
// Lists that already hold values are left alone.
func seedMissingReferences(ctx context.Context, repo *storage.SQLiteRepository, dir string) error {
	for _, list := range sheets.ReferenceLists() {
		current, err := repo.References(ctx, list)
		if err != nil {
			return fmt.Errorf("check %s: %w", list, err)
		}
		if len(current) > 0 {
			continue
		}
		values := memory.ReadSeedFile(filepath.Join(dir, memory.SeedFiles[list]))
		if len(values) == 0 {
			continue
		}
		if err := repo.SeedReferences(ctx, list, values); err != nil {
			return fmt.Errorf("seed %s: %w", list, err)
		}
	}
	return nil
}
