package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/api"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/application/service"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/infrastructure/config"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/infrastructure/logging"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/infrastructure/metrics"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/infrastructure/storage"
)

const (
	shutdownTimeout    = 30 * time.Second
	jobCleanupInterval = 5 * time.Minute
)

// RunServe runs the API server until ctx is cancelled.
func RunServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	m := metrics.New(prometheus.NewRegistry())
	deps := Deps{Store: store, Metrics: m, Logger: logger}
	syncService := service.NewSyncService(cfg, RunnerFactory(deps, cfg.Observability.Logging), logging.WithSystem(logger, "sync"))
	syncService.StartBackgroundCleanup(jobCleanupInterval)
	defer syncService.StopBackgroundCleanup()

	server := api.NewServer(api.NewConfig(cfg.API), store, syncService, m, logging.WithSystem(logger, "api"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		return err
	}

	logger.Info("server stopped")
	return <-errCh
}
