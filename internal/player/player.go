// Package player is the rotation controller. It owns the content bank and
// the render surface and drives the rotate, refresh, config-watch, and hub
// sync loops from a single process.
package player

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/marqueehq/marquee/internal/backoff"
	"github.com/marqueehq/marquee/internal/config"
	"github.com/marqueehq/marquee/internal/content"
	"github.com/marqueehq/marquee/internal/display"
	"github.com/marqueehq/marquee/internal/observability"
	"github.com/marqueehq/marquee/internal/remote"
	"github.com/marqueehq/marquee/internal/schedule"
)

// tickPause is how long a loop backs off after a failed tick.
const tickPause = time.Second

// surfaceFactory builds a render surface for the given display parameters.
type surfaceFactory func(display.Params, *slog.Logger) (display.Surface, error)

// Player coordinates everything a kiosk does: showing items in order,
// refreshing stale pages, and reacting to configuration changes from the
// file watcher or the hub.
type Player struct {
	cfgPath    string
	baseLogger *slog.Logger
	logger     *slog.Logger
	metrics    *observability.Metrics

	newSurface    surfaceFactory
	sleep         func(ctx context.Context, d time.Duration) error
	scheduler     *schedule.Scheduler
	watchInterval time.Duration

	// mu serializes reload transactions against loop reads of the active
	// config and surface.
	mu      sync.Mutex
	cfg     *config.Config
	params  display.Params
	surface display.Surface

	bank *content.Bank

	// lastMtime is only touched by the watch loop.
	lastMtime time.Time

	wg sync.WaitGroup
}

// Option configures the player.
type Option func(*Player)

// WithLogger configures the player logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Player) {
		if logger != nil {
			p.baseLogger = logger
		}
	}
}

// WithMetrics configures the metrics set the player records into.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Player) {
		if m != nil {
			p.metrics = m
		}
	}
}

// WithSurfaceFactory overrides how render surfaces are built, for tests.
func WithSurfaceFactory(fn surfaceFactory) Option {
	return func(p *Player) {
		if fn != nil {
			p.newSurface = fn
		}
	}
}

// WithSleep overrides the dwell clock, for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Player) {
		if fn != nil {
			p.sleep = fn
		}
	}
}

// WithScheduler overrides the power scheduler, for tests.
func WithScheduler(s *schedule.Scheduler) Option {
	return func(p *Player) {
		if s != nil {
			p.scheduler = s
		}
	}
}

// New loads the configuration at cfgPath and prepares a player for Run.
func New(cfgPath string, opts ...Option) (*Player, error) {
	p := &Player{
		cfgPath:       cfgPath,
		baseLogger:    slog.Default(),
		newSurface:    display.New,
		sleep:         backoff.Sleep,
		watchInterval: time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.baseLogger.With("component", "player")
	if p.metrics == nil {
		p.metrics = observability.NewMetricsWith(prometheus.NewRegistry())
	}
	if p.scheduler == nil {
		p.scheduler = schedule.New(schedule.WithLogger(p.baseLogger))
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	p.cfg = cfg
	p.params = surfaceParams(cfg)
	p.bank = content.NewBank(cfg.Items())
	if info, err := os.Stat(cfgPath); err == nil {
		p.lastMtime = info.ModTime()
	}
	return p, nil
}

func surfaceParams(cfg *config.Config) display.Params {
	return display.Params{
		Screen:             cfg.Display.Screen,
		Width:              cfg.Display.Width,
		Height:             cfg.Display.Height,
		Rotation:           cfg.Display.Rotation,
		Engine:             cfg.Display.Engine,
		RemoteDebuggingURL: cfg.Display.RemoteDebuggingURL,
	}
}

// Run opens the surface, loads the playlist, and rotates until ctx is
// cancelled. Startup failures are returned; once running, individual tick
// failures are logged and survived.
func (p *Player) Run(ctx context.Context) error {
	surface, err := p.newSurface(p.params, p.baseLogger)
	if err != nil {
		return err
	}
	if err := surface.Open(ctx); err != nil {
		p.metrics.SurfaceErrors.WithLabelValues("open").Inc()
		return fmt.Errorf("failed to open display: %w", err)
	}
	if err := surface.Sync(ctx, p.bank.Targets()); err != nil {
		p.metrics.SurfaceErrors.WithLabelValues("sync").Inc()
		_ = surface.Close(ctx)
		return fmt.Errorf("failed to load initial content: %w", err)
	}
	p.mu.Lock()
	p.surface = surface
	p.mu.Unlock()
	p.metrics.ContentItems.Set(float64(p.bank.Len()))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := p.scheduler.Apply(p.cfg.Schedule.OnTime, p.cfg.Schedule.OffTime); err != nil {
		p.logger.Warn("power schedule not applied", "error", err)
	}
	p.scheduler.Start(runCtx)

	p.logger.Info("player started",
		"items", p.bank.Len(),
		"rotation_interval", p.cfg.Behavior.RotationInterval,
		"watch", p.cfg.Behavior.Watch,
	)

	p.wg.Add(1)
	go p.rotateLoop(runCtx)

	if interval := p.cfg.Behavior.RefreshInterval; interval > 0 {
		p.wg.Add(1)
		go p.refreshLoop(runCtx, time.Duration(interval)*time.Second)
	}
	if p.cfg.Behavior.Watch != config.WatchOff {
		p.wg.Add(1)
		go p.watchLoop(runCtx)
	}
	if p.cfg.Remote.URL != "" {
		p.wg.Add(1)
		go p.remoteLoop(runCtx)
	}

	<-ctx.Done()
	cancel()
	p.wg.Wait()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	_ = p.scheduler.Stop(stopCtx)

	p.mu.Lock()
	current := p.surface
	p.mu.Unlock()
	_ = current.Close(stopCtx)

	p.logger.Info("player stopped")
	return nil
}

// rotateLoop shows the current item, dwells for its duration, and advances.
// A failed tick pauses briefly so a broken surface cannot spin the loop hot.
func (p *Player) rotateLoop(ctx context.Context) {
	defer p.wg.Done()
	for ctx.Err() == nil {
		if err := p.rotateTick(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Error("rotation tick failed", "error", err)
			_ = p.sleep(ctx, tickPause)
		}
	}
}

func (p *Player) rotateTick(ctx context.Context) error {
	p.mu.Lock()
	surface := p.surface
	fallback := p.cfg.Behavior.RotationInterval
	p.mu.Unlock()

	index, item := p.bank.Current()
	dwell := p.bank.DurationFor(item, fallback)

	if err := surface.Show(ctx, index); err != nil {
		p.metrics.SurfaceErrors.WithLabelValues("show").Inc()
		return fmt.Errorf("show item %d: %w", index, err)
	}
	p.metrics.Rotations.Inc()
	p.metrics.CurrentIndex.Set(float64(index))
	p.logger.Debug("rotate", "index", index, "kind", string(item.Kind), "source", item.Source, "duration", dwell)

	if err := p.sleep(ctx, time.Duration(dwell)*time.Second); err != nil {
		return nil
	}
	p.bank.Advance()
	return nil
}

// refreshLoop re-navigates the visible page on a fixed cadence so dashboards
// that leak memory or lose their websocket get a clean slate.
func (p *Player) refreshLoop(ctx context.Context, interval time.Duration) {
	defer p.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.mu.Lock()
			surface := p.surface
			p.mu.Unlock()

			index := p.bank.Cursor()
			if err := surface.Reload(ctx, index); err != nil {
				p.metrics.SurfaceErrors.WithLabelValues("reload").Inc()
				p.logger.Warn("page refresh failed", "index", index, "error", err)
			}
		}
	}
}

// remoteLoop runs the hub sync protocol when a hub URL is configured.
func (p *Player) remoteLoop(ctx context.Context) {
	defer p.wg.Done()

	serial, err := remote.Serial()
	if err != nil {
		p.logger.Error("device serial unavailable, hub sync disabled", "error", err)
		return
	}

	remoteCfg := p.Snapshot().Remote
	syncer := remote.NewSyncer(remote.NewClient(remoteCfg.URL, serial), p, remoteCfg, p.baseLogger)
	_ = syncer.Run(ctx)
}
