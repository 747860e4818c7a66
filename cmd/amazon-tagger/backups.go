package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/infrastructure/backup"
)

func (a *app) backupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backups",
		Short: "List saved ledger snapshots usable with --use_json_backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			epochs, err := backup.NewStore(a.cfg.Monarch.BackupPath).List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(epochs) == 0 {
				fmt.Fprintf(out, "No snapshots in %s\n", a.cfg.Monarch.BackupPath)
				return nil
			}
			for _, epoch := range epochs {
				fmt.Fprintf(out, "%d\t%s\n", epoch, time.Unix(epoch, 0).UTC().Format(time.RFC3339))
			}
			return nil
		},
	}
}
