package main

import (
	"github.com/spf13/cobra"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/cli"
)

func (a *app) tagCmd() *cobra.Command {
	var flags *cli.TagFlags
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Match order history to transactions and tag them",
		Example: `  # Preview against a saved snapshot
  amazon-tagger tag --amazon_export ~/Downloads/Your\ Orders.zip --use_json_backup 1700000000 --dry_run

  # Tag for real, asking before overwriting earlier tags
  amazon-tagger tag --amazon_export orders.zip --prompt_retag`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags.Apply(cmd, a.cfg)
			_, err := cli.RunTag(cmd.Context(), a.cfg, cli.TagOptions{
				PrintUnmatched: flags.PrintUnmatched,
				SkipDryPrint:   flags.SkipDryPrint,
				Out:            cmd.OutOrStdout(),
				Progress:       cli.NewProgressBar(cmd.ErrOrStderr()),
			}, a.logger)
			return err
		},
	}
	flags = cli.BindTagFlags(cmd)
	return cmd
}
