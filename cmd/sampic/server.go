package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

func newServerCommand(a *app) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the upload endpoint",
		Long: `Run the HTTP upload endpoint. Clients using the upload backend post raw
pixels to it; the server stores them in the configured bucket.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}
			return a.serve(cmd.Context(), cfg, a.loggerAt(slog.LevelInfo))
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "Listen port (overrides the port setting)")
	return cmd
}
