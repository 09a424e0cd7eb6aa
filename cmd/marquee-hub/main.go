// Package main provides the CLI entry point for the marquee fleet hub.
//
// The hub keeps a registry of kiosk players and the playlist and settings
// each one should run. Players register themselves by device serial, then
// poll for their playlist, settings and liveness.
//
// # Basic Usage
//
// Start the hub:
//
//	marquee-hub serve --config hub.yaml
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/marqueehq/marquee/internal/config"
	"github.com/marqueehq/marquee/internal/hub"
	"github.com/marqueehq/marquee/internal/observability"
)

// Build information - populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "marquee-hub",
		Short: "Marquee hub - kiosk fleet server",
		Long: `The hub manages a fleet of marquee players: which playlist each
display runs, its rotation cadence and power schedule, and whether it
is still checking in.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(buildServeCmd())
	rootCmd.AddCommand(buildSchemaCmd())
	return rootCmd
}

// buildServeCmd creates the "serve" command that starts the hub server.
func buildServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the hub server",
		Example: `  # Start with built-in defaults (:8080, marquee-hub.db)
  marquee-hub serve

  # Start with a custom config
  marquee-hub serve --config /etc/marquee/hub.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "",
		"Path to YAML configuration file (optional)")

	return cmd
}

// buildSchemaCmd creates the "schema" command that prints the config schema.
func buildSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema for the hub config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := config.HubJSONSchema()
			if err != nil {
				return fmt.Errorf("failed to build schema: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(schema))
			return nil
		},
	}
}

// runServe implements the serve command logic.
func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.LoadHub(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	logger.Info("starting marquee-hub",
		"version", version,
		"commit", commit,
		"addr", cfg.Addr,
		"db", cfg.DB,
	)

	store, err := hub.OpenStore(cfg.DB)
	if err != nil {
		return err
	}
	defer store.Close()

	server := hub.NewServer(store, logger, observability.NewHubMetrics(),
		hub.WithOfflineAfter(time.Duration(cfg.OfflineAfter)*time.Second))

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return server.ListenAndServe(ctx, cfg.Addr)
}
