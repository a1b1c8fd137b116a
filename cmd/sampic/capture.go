package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sampic/sampic/internal/storage"
)

func newCaptureCommand(a *app, kind storage.Kind, short string) *cobra.Command {
	var open bool
	cmd := &cobra.Command{
		Use:   string(kind),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			logger := a.logger().With("backend", string(kind))

			link, err := a.capture(cmd.Context(), kind, cfg, logger)
			if link != "" {
				fmt.Fprintln(cmd.OutOrStdout(), link)
			}
			if err != nil {
				if isPartial(err) {
					return fmt.Errorf("link %s was issued but the image was not stored: %w", link, err)
				}
				return err
			}

			if open {
				if err := a.openURL(link); err != nil {
					return fmt.Errorf("open %s: %w", link, err)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&open, "open", false, "Open the link once the image is stored")
	return cmd
}
