// Package main provides the CLI entry point for the marquee kiosk player.
//
// Marquee rotates a playlist of web pages, images and videos on an
// unattended display. The player owns the browser session, applies config
// changes without a restart, and optionally syncs its playlist and
// settings from a marquee-hub fleet server.
//
// # Basic Usage
//
// Start the player:
//
//	marquee run --config marquee.yaml
//
// Validate a config file without touching the display:
//
//	marquee check --config marquee.yaml
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information - populated by ldflags during build.
//
// Example build command:
//
//	go build -ldflags "-X main.version=v1.0.0 -X main.commit=$(git rev-parse HEAD) -X main.date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
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
		Use:   "marquee",
		Short: "Marquee - kiosk display player",
		Long: `Marquee drives an unattended display through a full-screen browser,
rotating a configured playlist of pages, images and videos.

The playlist lives in a local config file that is watched for changes,
or comes from a marquee-hub server when a hub URL is configured.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildRunCmd(),
		buildCheckCmd(),
		buildSchemaCmd(),
	)

	return rootCmd
}
