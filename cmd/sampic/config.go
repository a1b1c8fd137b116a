package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/sampic/sampic/internal/config"
)

const (
	outputEnv   = "env"
	outputTable = "table"
)

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and write settings in the config file",
	}
	cmd.AddCommand(newConfigSetCommand(a), newConfigListCommand(a))
	return cmd
}

func newConfigSetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "set NAME VALUE",
		Short:     "Set a configuration value",
		Args:      cobra.ExactArgs(2),
		ValidArgs: config.Keys,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.Set(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s updated in %s\n", args[0], a.store.Path())
			return nil
		},
	}
}

func newConfigListCommand(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List effective configuration values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch output {
			case outputEnv:
				list, err := a.store.List()
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), list)
				return nil
			case outputTable:
				entries, err := a.store.Entries()
				if err != nil {
					return err
				}
				t := table.NewWriter()
				t.SetOutputMirror(cmd.OutOrStdout())
				t.AppendHeader(table.Row{"Key", "Value"})
				for _, e := range entries {
					t.AppendRow(table.Row{e.Key, mask(e.Key, e.Value)})
				}
				t.SetStyle(table.StyleLight)
				t.Render()
				return nil
			default:
				return fmt.Errorf("unknown output format %q (want %s or %s)", output, outputEnv, outputTable)
			}
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputEnv, "Output format: env or table")
	return cmd
}

// mask hides all but the last four characters of secrets in table output.
func mask(key, value string) string {
	if key != "api_secret_key" || len(value) <= 4 {
		return value
	}
	return strings.Repeat("*", len(value)-4) + value[len(value)-4:]
}
