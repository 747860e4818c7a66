package clients

import (
	"fmt"
	"log/slog"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/adapters/clients/monarch"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/adapters/ofx"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/ledger"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/infrastructure/backup"
	"github.com/eshaffer321/monarch-amazon-tagger/internal/infrastructure/config"
)

// Ledger sources.
const (
	SourceMonarch = "monarch"
	SourceOFX     = "ofx"
	SourceBackup  = "backup"
)

type Clients struct {
	Ledger  ledger.Client
	Backups *backup.Store
	Source  string
}

// NewClients picks the ledger source from config: a JSON snapshot when
// use_json_backup is set, OFX statements when files are listed, and the
// Monarch API otherwise. Every source is wrapped for snapshot saving.
func NewClients(cfg *config.Config, logger *slog.Logger) (*Clients, error) {
	if logger == nil {
		logger = slog.Default()
	}
	store := backup.NewStore(cfg.Monarch.BackupPath)

	var next ledger.Client
	source := SourceMonarch
	switch {
	case cfg.Monarch.UseBackup != 0:
		source = SourceBackup
	case len(cfg.Monarch.OFXFiles) > 0:
		source = SourceOFX
		next = ofx.NewClient(cfg.Monarch.OFXFiles, logger)
	default:
		// Get API key with fallback to alternative env var names
		token := cfg.GetAPIKey(cfg.Monarch.APIKey, "MONARCH_TOKEN", "MONARCH_API_KEY")
		mClient, err := monarch.NewClient(monarch.Config{
			Token:      token,
			BaseURL:    cfg.Monarch.BaseURL,
			Timeout:    cfg.Monarch.Timeout,
			MaxRetries: cfg.Monarch.MaxRetries,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create monarch client: %w", err)
		}
		next = mClient
	}

	wrapped := backup.NewClient(next, store, logger)
	wrapped.Replay = cfg.Monarch.UseBackup
	wrapped.Save = cfg.Monarch.SaveBackup

	logger.Debug("ledger client ready", slog.String("source", source))
	return &Clients{
		Ledger:  wrapped,
		Backups: store,
		Source:  source,
	}, nil
}
