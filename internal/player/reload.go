package player

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/marqueehq/marquee/internal/config"
)

// Snapshot returns a copy of the active configuration. Hub updates overlay
// their changes onto it before calling Apply.
func (p *Player) Snapshot() config.Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return *p.cfg
}

// Reload re-reads the configuration file and applies it. On any failure the
// previous configuration stays active and content keeps rotating.
func (p *Player) Reload(ctx context.Context) error {
	cfg, err := config.Load(p.cfgPath)
	if err != nil {
		p.metrics.Reloads.WithLabelValues("failed").Inc()
		return err
	}
	return p.Apply(ctx, cfg)
}

// Apply swaps in an already built configuration: the bank is replaced with
// cursor relocation, the surface restarts only when display parameters
// changed, and the page set is reconciled.
func (p *Player) Apply(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		p.metrics.Reloads.WithLabelValues("failed").Inc()
		return fmt.Errorf("invalid configuration: %w", err)
	}

	start := time.Now()
	err := p.apply(ctx, cfg)
	p.metrics.ReloadDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		p.metrics.Reloads.WithLabelValues("failed").Inc()
		return err
	}
	p.metrics.Reloads.WithLabelValues("applied").Inc()
	return nil
}

func (p *Player) apply(ctx context.Context, cfg *config.Config) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.surface == nil {
		return errors.New("player is not running")
	}

	newParams := surfaceParams(cfg)
	surfaceChanged := newParams != p.params

	items := cfg.Items()
	diff := p.bank.Diff(items)
	p.bank.SetItems(items)

	oldSchedule := p.cfg.Schedule
	p.cfg = cfg
	p.params = newParams

	if surfaceChanged {
		_ = p.surface.Close(ctx)
		next, err := p.newSurface(newParams, p.baseLogger)
		if err != nil {
			return fmt.Errorf("failed to build display surface: %w", err)
		}
		// Keep the new surface even if Open fails: Open is idempotent, so
		// the next reload retries it instead of driving a closed session.
		p.surface = next
		if err := next.Open(ctx); err != nil {
			p.metrics.SurfaceErrors.WithLabelValues("open").Inc()
			return fmt.Errorf("failed to reopen display: %w", err)
		}
	}

	if err := p.surface.Sync(ctx, p.bank.Targets()); err != nil {
		p.metrics.SurfaceErrors.WithLabelValues("sync").Inc()
		return fmt.Errorf("failed to sync content: %w", err)
	}
	p.metrics.ContentItems.Set(float64(p.bank.Len()))

	if cfg.Schedule != oldSchedule {
		if err := p.scheduler.Apply(cfg.Schedule.OnTime, cfg.Schedule.OffTime); err != nil {
			p.logger.Warn("power schedule not applied", "error", err)
		}
	}

	if diff.Empty() && !surfaceChanged {
		p.logger.Debug("config applied, nothing changed")
		return nil
	}
	p.logger.Info("config reloaded",
		"added", len(diff.Added),
		"removed", len(diff.Removed),
		"modified", len(diff.Modified),
		"items", p.bank.Len(),
		"display_changed", surfaceChanged,
	)
	return nil
}
