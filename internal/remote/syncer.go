package remote

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/marqueehq/marquee/internal/backoff"
	"github.com/marqueehq/marquee/internal/config"
)

// Applier receives hub-driven configuration updates. The player implements
// it with the same transaction the file watcher uses.
type Applier interface {
	// Snapshot returns a copy of the active configuration to overlay.
	Snapshot() config.Config
	// Apply swaps in the given configuration.
	Apply(ctx context.Context, cfg *config.Config) error
}

// Syncer runs the device side of the hub protocol: one registration, then a
// steady poll of ping, settings, and playlist.
type Syncer struct {
	client      *Client
	applier     Applier
	name        string
	description string
	interval    time.Duration
	policy      backoff.Policy
	logger      *slog.Logger
}

// NewSyncer wires a hub client to the player's config-apply path.
func NewSyncer(client *Client, applier Applier, cfg config.RemoteConfig, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	name := cfg.Name
	if name == "" {
		if hostname, err := os.Hostname(); err == nil {
			name = hostname
		} else {
			name = "marquee-player"
		}
	}
	description := cfg.Description
	if description == "" {
		description = "marquee kiosk player"
	}
	return &Syncer{
		client:      client,
		applier:     applier,
		name:        name,
		description: description,
		interval:    time.Duration(cfg.PollInterval) * time.Second,
		policy:      backoff.DefaultPolicy(),
		logger:      logger.With("component", "remote"),
	}
}

// Run registers the device, retrying until it sticks, then polls the hub
// until the context is cancelled.
func (s *Syncer) Run(ctx context.Context) error {
	err := backoff.Retry(ctx, s.policy, 0, func(attempt int) error {
		err := s.client.Register(ctx, s.name, s.description)
		if err != nil {
			s.logger.Warn("hub registration failed", "attempt", attempt, "error", err)
		}
		return err
	})
	if err != nil {
		// Only context cancellation gets here; registration retries forever.
		return nil
	}
	s.logger.Info("registered with hub", "name", s.name, "serial", s.client.Serial())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick performs one poll cycle. Any failure skips the cycle; the next tick
// retries from scratch.
func (s *Syncer) tick(ctx context.Context) {
	if err := s.client.Ping(ctx); err != nil {
		s.logger.Warn("hub ping failed", "error", err)
		return
	}
	settings, err := s.client.Settings(ctx)
	if err != nil {
		s.logger.Warn("fetching hub settings failed", "error", err)
		return
	}
	entries, err := s.client.Playlist(ctx)
	if err != nil {
		s.logger.Warn("fetching hub playlist failed", "error", err)
		return
	}

	cfg := s.applier.Snapshot()
	cfg.Content = entries
	cfg.URLs = nil
	if settings.RotationInterval > 0 {
		cfg.Behavior.RotationInterval = settings.RotationInterval
	}
	// Empty hub clocks leave any locally configured schedule alone.
	if settings.OnTime != "" {
		cfg.Schedule.OnTime = settings.OnTime
	}
	if settings.OffTime != "" {
		cfg.Schedule.OffTime = settings.OffTime
	}

	if err := s.applier.Apply(ctx, &cfg); err != nil {
		s.logger.Warn("applying hub update failed", "error", err)
	}
}
