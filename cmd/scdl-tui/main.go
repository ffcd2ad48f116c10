// Package main provides the scdl-tui interactive entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/handiism/soundcloud-downloader/internal/config"
	"github.com/handiism/soundcloud-downloader/internal/tui"
)

func main() {
	var cfgFile string

	cmd := &cobra.Command{
		Use:          "scdl-tui",
		Short:        "Interactive SoundCloud downloader",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			settings, err := config.Load(config.NewViper(), cfgFile)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Using default settings: %v\n", err)
			}

			// The alternate screen owns the terminal, so pipeline logs are dropped.
			return tui.Run(settings, zap.NewNop())
		},
	}
	cmd.Flags().StringVar(&cfgFile, "config", config.DefaultPath(), "settings file")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
