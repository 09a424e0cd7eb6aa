package display

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// cdpSurface drives Chromium over the DevTools protocol. With a remote
// debugging URL it attaches to an already running browser, otherwise it
// launches its own.
type cdpSurface struct {
	params Params
	logger *slog.Logger
	run    runner

	mu          sync.Mutex
	allocCancel context.CancelFunc
	// rootCtx owns the browser and stays parked on about:blank. Page tabs
	// derive from it so closing one never tears the browser down.
	rootCtx    context.Context
	rootCancel context.CancelFunc
	tabs       []*cdpTab
	targets    []string
}

type cdpTab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func newCDPSurface(params Params, logger *slog.Logger) *cdpSurface {
	return &cdpSurface{
		params: params,
		logger: logger.With("component", "display", "engine", engineCDP),
		run:    execRunner,
	}
}

// cdpFlags translates the shared kiosk arguments into exec allocator options.
func cdpFlags() []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{chromedp.Flag("headless", false)}
	for _, arg := range kioskArgs(runtime.GOOS) {
		name, value, found := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if found {
			opts = append(opts, chromedp.Flag(name, value))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}
	return opts
}

func (s *cdpSurface) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.rootCtx != nil {
		return nil
	}

	prepareScreen(ctx, runtime.GOOS, s.params, s.run, s.logger)

	// The allocator derives from the background context so the browser
	// outlives the call that opened it.
	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if s.params.RemoteDebuggingURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(context.Background(), s.params.RemoteDebuggingURL)
		s.logger.Info("attaching to remote browser", "url", s.params.RemoteDebuggingURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:], cdpFlags()...)
		allocCtx, allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}

	rootCtx, rootCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(rootCtx); err != nil {
		rootCancel()
		allocCancel()
		return fmt.Errorf("failed to start browser: %w", err)
	}

	s.allocCancel = allocCancel
	s.rootCtx = rootCtx
	s.rootCancel = rootCancel
	s.tabs = nil
	s.targets = nil
	s.logger.Info("surface opened", "screen", s.params.Screen, "size", fmt.Sprintf("%dx%d", s.params.Width, s.params.Height))
	return nil
}

func (s *cdpSurface) Sync(ctx context.Context, targets []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.rootCtx == nil {
		return errors.New("surface not open")
	}

	plan := planSync(s.targets, targets)

	for i := 0; i < plan.grow; i++ {
		tabCtx, tabCancel := chromedp.NewContext(s.rootCtx)
		if err := chromedp.Run(tabCtx, chromedp.Navigate("about:blank")); err != nil {
			tabCancel()
			return fmt.Errorf("failed to open tab: %w", err)
		}
		s.tabs = append(s.tabs, &cdpTab{ctx: tabCtx, cancel: tabCancel})
	}
	for i := 0; i < plan.shrink; i++ {
		tab := s.tabs[len(s.tabs)-1]
		s.tabs = s.tabs[:len(s.tabs)-1]
		s.closeTab(tab)
	}

	next := slices.Clone(targets)
	for _, i := range plan.navigate {
		navCtx, cancel := context.WithTimeout(s.tabs[i].ctx, navigationTimeout)
		err := chromedp.Run(navCtx, chromedp.Navigate(targets[i]))
		cancel()
		if err != nil {
			s.logger.Warn("navigation failed", "position", i, "error", err)
			next[i] = ""
		}
	}
	s.targets = next
	s.logger.Debug("surface synced", "pages", len(targets), "navigated", len(plan.navigate))
	return nil
}

func (s *cdpSurface) Show(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(s.tabs) == 0 {
		return nil
	}

	index = clampIndex(index, len(s.tabs))
	err := chromedp.Run(s.tabs[index].ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return page.BringToFront().Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("failed to raise tab %d: %w", index, err)
	}
	return nil
}

func (s *cdpSurface) Reload(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if index < 0 || index >= len(s.tabs) {
		s.logger.Debug("reload index out of range", "index", index, "pages", len(s.tabs))
		return nil
	}

	navCtx, cancel := context.WithTimeout(s.tabs[index].ctx, navigationTimeout)
	defer cancel()
	if err := chromedp.Run(navCtx, chromedp.Reload()); err != nil {
		return fmt.Errorf("failed to reload tab %d: %w", index, err)
	}
	return nil
}

func (s *cdpSurface) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasOpen := s.rootCtx != nil
	for _, tab := range s.tabs {
		s.closeTab(tab)
	}
	s.tabs = nil
	s.targets = nil

	if s.rootCtx != nil {
		if err := chromedp.Cancel(s.rootCtx); err != nil {
			s.logger.Debug("browser shutdown failed", "error", err)
		}
		s.rootCancel()
		s.rootCtx = nil
		s.rootCancel = nil
	}
	if s.allocCancel != nil {
		s.allocCancel()
		s.allocCancel = nil
	}

	if wasOpen {
		s.logger.Info("surface closed")
	}
	return nil
}

// closeTab asks the target to close gracefully before cancelling its context.
func (s *cdpSurface) closeTab(tab *cdpTab) {
	if err := chromedp.Cancel(tab.ctx); err != nil {
		s.logger.Debug("tab close failed", "error", err)
	}
	tab.cancel()
}
