package cli

import (
	"fmt"
	"log/slog"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/adapters/clients"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/adapters/providers"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/adapters/providers/amazon"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/application/service"
	appsync "github.com/eshaffer321/monarch-amazon-tagger/internal/application/sync"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/infrastructure/config"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/infrastructure/logging"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/infrastructure/metrics"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/infrastructure/storage"
)

// Deps are the collaborators shared by every run. Store, Metrics and
// Progress may be nil.
type Deps struct {
	Store    storage.Repository
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	Progress providers.Progress
}

// Runner is a ready-to-run orchestrator plus the ledger wiring it was built on.
type Runner struct {
	*appsync.Orchestrator
	Clients *clients.Clients
	Config  appsync.Config
}

// NewAmazonProvider reads the configured export files.
func NewAmazonProvider(cfg *config.Config, logger *slog.Logger, progress providers.Progress) *amazon.Provider {
	return amazon.NewProvider(logger, &amazon.ProviderConfig{
		Paths:    cfg.Amazon.ExportPaths,
		Strict:   cfg.Amazon.StrictParsing,
		Progress: progress,
	})
}

// NewRunner validates cfg and wires the provider, ledger client and
// orchestrator for one run.
func NewRunner(cfg *config.Config, deps Deps) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	engineCfg, err := appsync.NewConfig(cfg)
	if err != nil {
		return nil, err
	}

	c, err := clients.NewClients(cfg, logging.WithSystem(logger, "monarch"))
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger client: %w", err)
	}

	source := NewAmazonProvider(cfg, logging.WithSystem(logger, "amazon"), deps.Progress)
	orch := appsync.NewOrchestrator(source, c.Ledger, deps.Store, deps.Metrics, engineCfg, logging.WithSystem(logger, "tagger"))
	return &Runner{Orchestrator: orch, Clients: c, Config: engineCfg}, nil
}

// RunnerFactory builds runners for background sync jobs. A verbose job gets
// its own debug-level logger.
func RunnerFactory(deps Deps, logCfg config.LoggingConfig) service.RunnerFactory {
	return func(cfg *config.Config, verbose bool) (service.Runner, error) {
		d := deps
		if verbose {
			debugCfg := logCfg
			debugCfg.Level = "debug"
			d.Logger = logging.NewLoggerWithSystem(debugCfg, "sync")
		}
		return NewRunner(cfg, d)
	}
}
