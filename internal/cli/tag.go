package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/adapters/providers"
	appsync "github.com/eshaffer321/monarch-amazon-tagger/internal/application/sync"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/infrastructure/config"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/infrastructure/storage"
)

// TagOptions control the tag command's terminal behaviour.
type TagOptions struct {
	PrintUnmatched bool
	SkipDryPrint   bool

	In       *os.File // Retag prompt keys; defaults to stdin
	Out      io.Writer
	Progress providers.Progress
}

// RunTag runs one tagging pass from the terminal and prints its report.
func RunTag(ctx context.Context, cfg *config.Config, opts TagOptions, logger *slog.Logger) (*appsync.Result, error) {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Progress == nil {
		opts.Progress = providers.NoProgress{}
	}

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	runner, err := NewRunner(cfg, Deps{Store: store, Logger: logger, Progress: opts.Progress})
	if err != nil {
		return nil, err
	}

	dryRun := cfg.Tagger.DryRun
	PrintHeader(opts.Out, runner.Clients.Source, dryRun)

	runOpts := appsync.NewOptions(cfg)
	runOpts.Progress = opts.Progress
	if runOpts.PromptRetag {
		runOpts.ConfirmRetag = NewRetagPrompter(opts.In, opts.Out, cfg.Tagger.NoTagCategories).Confirm
	}

	result, err := runner.Run(ctx, runOpts)
	if err != nil {
		return nil, err
	}

	anchor := runner.Config.Matcher.Anchor
	PrintAmazonStats(opts.Out, result.Items, result.Charges, anchor)
	PrintProcessingStats(opts.Out, result)
	if opts.PrintUnmatched {
		PrintUnmatched(opts.Out, result.UnmatchedCharges, anchor)
	}

	if dryRun && len(result.Updates) > 0 {
		if opts.SkipDryPrint {
			logger.Info("dry run print results skipped")
		} else {
			PrintDryRun(opts.Out, result.Updates, cfg.Tagger.NoTagCategories)
		}
	}

	PrintSyncSummary(opts.Out, result, store, dryRun)
	return result, nil
}
