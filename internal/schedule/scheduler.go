// Package schedule flips the attached panel on and off at configured
// wall-clock times, through HDMI-CEC plus DPMS.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	actionOn  = "on"
	actionOff = "off"
)

// runner executes a power command, optionally feeding stdin. Injected so
// tests can record calls instead of toggling a real panel.
type runner func(ctx context.Context, stdin, name string, args ...string) error

func execRunner(ctx context.Context, stdin, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	return cmd.Run()
}

// entry is one armed power transition.
type entry struct {
	action string
	expr   string
	sched  cron.Schedule
	next   time.Time
}

// Scheduler drives the panel power schedule. Times are re-armed through
// Apply whenever the configuration changes.
type Scheduler struct {
	logger       *slog.Logger
	run          runner
	now          func() time.Time
	tickInterval time.Duration

	mu      sync.Mutex
	started bool
	entries []*entry
	wg      sync.WaitGroup
}

// Option configures the scheduler.
type Option func(*Scheduler)

// WithLogger configures the scheduler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger.With("component", "schedule")
		}
	}
}

// WithRunner overrides the power command runner for tests.
func WithRunner(run runner) Option {
	return func(s *Scheduler) {
		if run != nil {
			s.run = run
		}
	}
}

// WithNow overrides the clock for tests.
func WithNow(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTickInterval overrides the scheduler tick interval.
func WithTickInterval(interval time.Duration) Option {
	return func(s *Scheduler) {
		if interval > 0 {
			s.tickInterval = interval
		}
	}
}

// New creates a power scheduler with no armed transitions.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		logger:       slog.Default().With("component", "schedule"),
		run:          execRunner,
		now:          time.Now,
		tickInterval: time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// clockToCron converts a HH:MM wall-clock time to a daily cron expression.
func clockToCron(clock string) (string, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return "", fmt.Errorf("invalid clock time %q: %w", clock, err)
	}
	return fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour()), nil
}

// Apply replaces the armed transitions. Empty strings disarm the
// corresponding transition; both empty clears the schedule entirely.
func (s *Scheduler) Apply(onTime, offTime string) error {
	var entries []*entry
	for _, clock := range []struct {
		action string
		value  string
	}{
		{actionOn, onTime},
		{actionOff, offTime},
	} {
		if clock.value == "" {
			continue
		}
		expr, err := clockToCron(clock.value)
		if err != nil {
			return err
		}
		sched, err := cron.ParseStandard(expr)
		if err != nil {
			return fmt.Errorf("invalid schedule %q: %w", expr, err)
		}
		entries = append(entries, &entry{
			action: clock.action,
			expr:   expr,
			sched:  sched,
			next:   sched.Next(s.now()),
		})
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()

	if len(entries) == 0 {
		s.logger.Debug("power schedule cleared")
		return nil
	}
	s.logger.Info("power schedule applied", "on", onTime, "off", offTime)
	return nil
}

// Start begins checking for due transitions until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runDue(ctx)
			}
		}
	}()
}

// Stop waits for the scheduler loop to drain.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce fires any due transitions immediately and reports how many ran.
// Primarily for tests.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	return s.runDue(ctx)
}

func (s *Scheduler) runDue(ctx context.Context) int {
	now := s.now()

	var due []string
	s.mu.Lock()
	for _, e := range s.entries {
		if e.next.IsZero() || now.Before(e.next) {
			continue
		}
		due = append(due, e.action)
		e.next = e.sched.Next(now)
	}
	s.mu.Unlock()

	for _, action := range due {
		s.power(ctx, action)
	}
	return len(due)
}

// power switches the panel through CEC and DPMS. Either command may be
// missing on a given box, so failures are logged and the other still runs.
func (s *Scheduler) power(ctx context.Context, action string) {
	frame := "on 0"
	xsetArgs := []string{"-dpms"}
	if action == actionOff {
		frame = "standby 0"
		xsetArgs = []string{"dpms", "force", "off"}
	}

	if err := s.run(ctx, frame, "cec-client", "-s", "-d", "1"); err != nil {
		s.logger.Warn("cec power command failed", "action", action, "error", err)
	}
	if err := s.run(ctx, "", "xset", xsetArgs...); err != nil {
		s.logger.Warn("dpms power command failed", "action", action, "error", err)
	}
	s.logger.Info("panel power switched", "action", action)
}
