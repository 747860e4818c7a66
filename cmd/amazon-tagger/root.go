package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/infrastructure/config"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/infrastructure/logging"
)

// app carries the state resolved by the root command before any
// subcommand runs.
type app struct {
	configFile string
	verbose    bool

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "amazon-tagger",
		Short: "Tag Monarch Money transactions with itemized Amazon order history",
		Long: `amazon-tagger matches Amazon order-history charges against Monarch Money
transactions and rewrites each match with item descriptions, categories and
order notes, splitting multi-item charges.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: a.init,
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default: ./config.yaml, then environment)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(a.tagCmd())
	root.AddCommand(a.serveCmd())
	root.AddCommand(a.backupsCmd())
	return root
}

func (a *app) init(cmd *cobra.Command, _ []string) error {
	if a.configFile != "" {
		cfg, err := config.Load(a.configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		a.cfg = cfg
	} else {
		a.cfg = config.LoadOrEnv()
	}

	loggingCfg := a.cfg.Observability.Logging
	if a.verbose {
		loggingCfg.Level = "debug"
	}
	a.logger = logging.NewLoggerWithSystemTo(cmd.ErrOrStderr(), loggingCfg, "tagger")
	slog.SetDefault(a.logger)
	return nil
}
