package cli

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/infrastructure/config"
)

func TestTagFlags_Apply(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, cfg *config.Config)
	}{
		{
			name: "unset flags keep config values",
			args: nil,
			check: func(t *testing.T, cfg *config.Config) {
				assert.True(t, cfg.Tagger.RetagChanged)
				assert.Equal(t, config.DefaultMaxDays, cfg.Tagger.MaxDaysBetweenPaymentAndShipping)
				assert.Equal(t, config.DefaultDescriptionFilter, cfg.Tagger.DescriptionFilter)
			},
		},
		{
			name: "set flags override",
			args: []string{
				"--dry_run", "--num_updates=3", "--retag_changed=false",
				"--amazon_export", "a.zip,b.zip",
				"--max_days_between_payment_and_shipping", "7",
				"--mm_input_description_filter", "amzn",
				"--start_date", "2024-01-01", "--end_date", "2024-02-01",
				"--use_json_backup", "1700000000",
			},
			check: func(t *testing.T, cfg *config.Config) {
				assert.True(t, cfg.Tagger.DryRun)
				assert.Equal(t, 3, cfg.Tagger.NumUpdates)
				assert.False(t, cfg.Tagger.RetagChanged)
				assert.Equal(t, []string{"a.zip", "b.zip"}, cfg.Amazon.ExportPaths)
				assert.Equal(t, 7, cfg.Tagger.MaxDaysBetweenPaymentAndShipping)
				assert.Equal(t, []string{"amzn"}, cfg.Tagger.DescriptionFilter)
				assert.Equal(t, "2024-01-01", cfg.Tagger.StartDate)
				assert.Equal(t, "2024-02-01", cfg.Tagger.EndDate)
				assert.Equal(t, int64(1700000000), cfg.Monarch.UseBackup)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			cmd := &cobra.Command{Use: "tag"}
			flags := BindTagFlags(cmd)
			require.NoError(t, cmd.ParseFlags(tt.args))
			cfg := config.Default()
			cfg.Tagger.RetagChanged = true

			// Act
			flags.Apply(cmd, cfg)

			// Assert
			tt.check(t, cfg)
		})
	}
}
