package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/marqueehq/marquee/internal/config"
	"github.com/marqueehq/marquee/internal/content"
	"github.com/marqueehq/marquee/internal/observability"
	"github.com/marqueehq/marquee/internal/player"
)

// runPlayer implements the run command logic.
func runPlayer(ctx context.Context, configPath string, debug bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Logging.Level
	if debug {
		level = "debug"
	}
	logger := observability.NewLogger(level, cfg.Logging.Format)
	slog.SetDefault(logger)

	logger.Info("starting marquee",
		"version", version,
		"commit", commit,
		"config", configPath,
		"items", len(cfg.Items()),
	)

	metrics := observability.NewMetrics()

	p, err := player.New(configPath,
		player.WithLogger(logger),
		player.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Metrics.Enabled {
		go serveMetrics(ctx, logger, cfg.Metrics.Addr)
	}

	return p.Run(ctx)
}

// serveMetrics exposes Prometheus metrics and a health probe until ctx is
// cancelled. Failures are logged, never fatal: the display must keep
// rotating without its metrics port.
func serveMetrics(ctx context.Context, logger *slog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", "addr", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server error", "error", err)
	}
}

// runCheck implements the check command logic.
func runCheck(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	items := cfg.Items()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: OK (%d playlist items, engine %s, watch %s)\n",
		configPath, len(items), cfg.Display.Engine, cfg.Behavior.Watch)

	bank := content.NewBank(items)
	for i, item := range items {
		fmt.Fprintf(out, "  %2d. %-5s %s (%ds)\n",
			i+1, item.Kind, item.Source, bank.DurationFor(item, cfg.Behavior.RotationInterval))
	}
	return nil
}

// runSchema implements the schema command logic.
func runSchema(cmd *cobra.Command) error {
	schema, err := config.JSONSchema()
	if err != nil {
		return fmt.Errorf("failed to build schema: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(schema))
	return nil
}
