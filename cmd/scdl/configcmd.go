package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/handiism/soundcloud-downloader/internal/config"
)

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective settings",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				data, err := json.MarshalIndent(a.settings, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the settings file location",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), a.cfgFile)
			},
		},
		&cobra.Command{
			Use:       "set <key> <value>",
			Short:     "Change a setting in the settings file",
			Args:      cobra.ExactArgs(2),
			ValidArgs: config.DefaultSettings().Keys(),
			RunE:      a.runConfigSet,
		},
		&cobra.Command{
			Use:   "preview [format]",
			Short: "Render a file name format against example track data",
			Args:  cobra.MaximumNArgs(1),
			Run: func(cmd *cobra.Command, args []string) {
				naming := a.settings.Naming()
				if len(args) == 1 {
					naming.Format = args[0]
				}
				fmt.Fprintln(cmd.OutOrStdout(), config.Preview(naming))
			},
		},
	)
	return cmd
}

// runConfigSet edits the file through a fresh viper, so flag overrides of
// this run are not persisted.
func (a *app) runConfigSet(cmd *cobra.Command, args []string) error {
	settings, err := config.Load(config.NewViper(), a.cfgFile)
	if err != nil {
		return err
	}
	if err := settings.Set(args[0], args[1]); err != nil {
		return err
	}
	if err := settings.Save(a.cfgFile); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], args[1])
	return nil
}
