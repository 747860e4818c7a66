package main

import (
	"github.com/spf13/cobra"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/cli"
)

func (a *app) serveCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API for history, stats and background sync jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.API.Port = port
			}
			return cli.RunServe(cmd.Context(), a.cfg, a.logger)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "port to listen on (default from config)")
	return cmd
}
