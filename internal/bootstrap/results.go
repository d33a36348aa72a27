package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/redis/go-redis/v9"

	"github.com/target/surveystats/config"
	"github.com/target/surveystats/internal/core"
	"github.com/target/surveystats/internal/data"
	"github.com/target/surveystats/internal/dataset"
	"github.com/target/surveystats/internal/domain/model"
)

// ResultBackend is the configured result store together with the connections it holds.
type ResultBackend struct {
	Kind  config.ResultsBackend
	Store core.ResultStore
	// LastJobID is the highest job id the store already holds; 0 for stores that start empty.
	LastJobID int64

	// Set only for the postgres backend.
	DB *sql.DB
	// Set only for the redis backend.
	Redis redis.UniversalClient

	closers []func() error
}

// Close releases every connection opened for the backend, newest first.
func (b *ResultBackend) Close() error {
	if b == nil {
		return nil
	}
	var errs []error
	for _, c := range slices.Backward(b.closers) {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

// OpenResultBackend builds the result store selected by cfg.Results.Backend.
func OpenResultBackend(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*ResultBackend, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	backend := &ResultBackend{Kind: cfg.Results.Backend}
	var err error
	switch cfg.Results.Backend {
	case config.ResultsBackendMemory:
		backend.Store = data.NewMemoryResultStore()
	case config.ResultsBackendFile:
		backend.Store, err = data.NewFileResultStore(cfg.Results.Dir)
	case config.ResultsBackendSQLite:
		err = openSQLite(ctx, backend, cfg.Results.SQLitePath)
	case config.ResultsBackendRedis:
		err = openRedis(ctx, backend, cfg, logger)
	case config.ResultsBackendPostgres:
		err = openPostgres(ctx, backend, cfg, logger)
	case config.ResultsBackendS3:
		backend.Store, err = data.NewObjectResultStore(ctx, data.ObjectResultStoreOptions{
			Endpoint:        cfg.Results.S3.Endpoint,
			Bucket:          cfg.Results.S3.Bucket,
			Prefix:          cfg.Results.S3.Prefix,
			AccessKey:       cfg.Results.S3.AccessKey,
			SecretAccessKey: cfg.Results.S3.SecretAccessKey,
			UseSSL:          cfg.Results.S3.UseSSL,
			CreateBucket:    cfg.Results.S3.CreateBucket,
		})
	default:
		err = fmt.Errorf("unsupported results backend %q", cfg.Results.Backend)
	}
	if err != nil {
		return nil, errors.Join(fmt.Errorf("open %s result store: %w", cfg.Results.Backend, err), backend.Close())
	}

	if catalog, ok := backend.Store.(core.ResultCatalog); ok {
		if backend.LastJobID, err = catalog.LastJobID(ctx); err != nil {
			return nil, errors.Join(fmt.Errorf("scan %s result store: %w", cfg.Results.Backend, err), backend.Close())
		}
	}

	logger.InfoContext(ctx, "result store ready", "backend", backend.Kind, "last_job_id", backend.LastJobID)
	return backend, nil
}

func openSQLite(ctx context.Context, backend *ResultBackend, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create sqlite directory: %w", err)
		}
	}
	store, err := data.OpenSQLiteResultStore(ctx, path)
	if err != nil {
		return err
	}
	backend.Store = store
	backend.closers = append(backend.closers, store.Close)
	return nil
}

func openRedis(ctx context.Context, backend *ResultBackend, cfg *config.AppConfig, logger *slog.Logger) error {
	client, err := ConnectRedis(ctx, DatabaseConfig{RedisConfig: cfg.Redis, Logger: logger})
	if err != nil {
		return err
	}
	backend.Redis = client
	backend.closers = append(backend.closers, client.Close)

	backend.Store, err = data.NewRedisResultRepo(data.RedisResultRepoOptions{
		Client: client,
		Prefix: cfg.Results.RedisPrefix,
		TTL:    cfg.Results.RedisTTL,
	})
	return err
}

func openPostgres(ctx context.Context, backend *ResultBackend, cfg *config.AppConfig, logger *slog.Logger) error {
	db, err := ConnectDB(ctx, DatabaseConfig{DBConfig: cfg.Postgres, Logger: logger})
	if err != nil {
		return err
	}
	backend.DB = db
	backend.closers = append(backend.closers, db.Close)

	if cfg.Postgres.RunMigrationsOnStart {
		if err := RunMigrations(ctx, db, logger); err != nil {
			return err
		}
	} else {
		logger.InfoContext(ctx, "skipping database migrations on startup", "reason", "disabled via config")
	}
	backend.Store = data.NewJobResultRepo(db)
	return nil
}

// LoadDataset reads the survey table configured in cfg.
func LoadDataset(cfg config.DatasetConfig, logger *slog.Logger) (*model.Dataset, error) {
	ds, _, err := dataset.Load(dataset.LoadOptions{
		Path:          cfg.Path,
		LowerIsBetter: cfg.LowerIsBetter,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	return ds, nil
}
