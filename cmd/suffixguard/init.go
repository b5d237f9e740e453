package main

import (
	"fmt"

	"suffixguard/internal/config"

	"github.com/spf13/cobra"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a default config file",
		Long: `Creates a default configuration file at $XDG_CONFIG_HOME/suffixguard/config.yaml,
or at the path given with --config. An existing file is never overwritten.`,
		Args: cobra.NoArgs,
		// Skip loading the config we are about to create.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfgFile
			if path == "" {
				path = config.UserConfigPath()
			}

			if err := config.WriteDefault(path); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
			return nil
		},
	}
}
