// Package amazon reads Amazon order history from the "Request Your Data"
// export: either the export zip itself or an extracted
// Retail.OrderHistory CSV.
package amazon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/adapters/providers"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/order"
)

// Provider implements providers.ItemSource over export files on disk.
type Provider struct {
	logger   *slog.Logger
	paths    []string
	strict   bool
	progress providers.Progress
}

// ProviderConfig holds configuration for the Amazon provider
type ProviderConfig struct {
	Paths    []string // Export zips or order-history CSVs
	Strict   bool     // Fail the load on any unparseable record
	Progress providers.Progress
}

// NewProvider creates a new Amazon provider
func NewProvider(logger *slog.Logger, cfg *ProviderConfig) *Provider {
	if logger == nil {
		logger = slog.Default()
	}

	p := &Provider{
		logger:   logger.With(slog.String("provider", "amazon")),
		progress: providers.NoProgress{},
	}
	if cfg != nil {
		p.paths = cfg.Paths
		p.strict = cfg.Strict
		if cfg.Progress != nil {
			p.progress = cfg.Progress
		}
	}
	return p
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return "amazon"
}

// LoadItems reads every configured export. Record-level parse failures are
// logged and skipped, unless the provider is strict, in which case they are
// returned as order.ParseErrors.
func (p *Provider) LoadItems(ctx context.Context) ([]*order.Item, error) {
	if len(p.paths) == 0 {
		return nil, fmt.Errorf("no amazon export files configured")
	}

	var (
		items     []*order.Item
		parseErrs order.ParseErrors
	)
	for _, path := range p.paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fileItems, fileErrs, err := p.readFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		p.logger.Info("read order history",
			slog.String("path", path),
			slog.Int("items", len(fileItems)),
			slog.Int("parse_errors", len(fileErrs)),
		)
		items = append(items, fileItems...)
		parseErrs = append(parseErrs, fileErrs...)
	}

	if len(parseErrs) > 0 {
		if p.strict {
			return nil, parseErrs
		}
		for _, pe := range parseErrs {
			p.logger.Warn("skipping unparseable record", slog.String("error", pe.Error()))
		}
	}
	return items, nil
}

func (p *Provider) readFile(path string) ([]*order.Item, order.ParseErrors, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	if !strings.EqualFold(filepath.Ext(path), ".zip") {
		return ReadCSV(f, p.progress)
	}

	info, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	return ReadZip(f, info.Size(), p.progress)
}
