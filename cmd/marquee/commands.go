package main

import (
	"github.com/spf13/cobra"
)

const defaultConfigPath = "marquee.yaml"

// buildRunCmd creates the "run" command that starts the player.
func buildRunCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the kiosk player",
		Long: `Start the player against the configured display.

The player will:
1. Load the playlist from the config file
2. Open the browser surface in kiosk mode, one page per item
3. Rotate through the playlist on the configured cadence
4. Apply config file changes in place, restarting the browser only
   when display settings change
5. Register with the hub and poll it, when one is configured

Graceful shutdown is handled on SIGINT/SIGTERM signals.`,
		Example: `  # Start with the default config
  marquee run

  # Start with a custom config
  marquee run --config /etc/marquee/lobby.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlayer(cmd.Context(), configPath, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath,
		"Path to YAML configuration file")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false,
		"Enable debug logging (verbose output)")

	return cmd
}

// buildCheckCmd creates the "check" command that validates a config file.
func buildCheckCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a config file without starting the player",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath,
		"Path to YAML configuration file")

	return cmd
}

// buildSchemaCmd creates the "schema" command that prints the config schema.
func buildSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema for the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(cmd)
		},
	}
}
