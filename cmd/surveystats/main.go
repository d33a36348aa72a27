package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/target/surveystats/config"
	"github.com/target/surveystats/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		slog.Default().ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}

	logger, logCloser := bootstrap.ConfigureLogger(cfg.Logging)
	defer func() {
		if cerr := logCloser.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close log file failed", "error", cerr)
		}
	}()

	logStartupInfo(ctx, logger, &cfg)

	if err = bootstrap.ValidateServiceConfig(&cfg); err != nil {
		return err
	}

	ds, err := bootstrap.LoadDataset(cfg.Dataset, logger)
	if err != nil {
		return err
	}

	results, err := bootstrap.OpenResultBackend(ctx, &cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := results.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close result store failed", "error", cerr)
		}
	}()

	services, err := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config:    &cfg,
		Dataset:   ds,
		Results:   results.Store,
		Logger:    logger,
		LastJobID: results.LastJobID,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := services.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close metrics sinks failed", "error", cerr)
		}
	}()

	return bootstrap.RunServicesWithShutdown(&bootstrap.ServiceOrchestrationConfig{
		Config:   &cfg,
		Services: services,
		Logger:   logger,
	})
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting surveystats service",
		"enabled_services", bootstrap.GetEnabledServices(cfg),
		"http_addr", cfg.HTTP.Addr,
		"workers", cfg.Pool.Workers,
		"dataset", cfg.Dataset.Path,
		"results_backend", cfg.Results.Backend)
}
