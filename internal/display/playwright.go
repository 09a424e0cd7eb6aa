package display

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// playwrightSurface drives a Chromium kiosk session through Playwright.
type playwrightSurface struct {
	params Params
	logger *slog.Logger
	run    runner

	mu         sync.Mutex
	pw         *playwright.Playwright
	browser    playwright.Browser
	browserCtx playwright.BrowserContext
	pages      []playwright.Page
	// targets records the last navigated URL per page position; "" marks a
	// failed navigation so the next sync retries it.
	targets []string
}

func newPlaywrightSurface(params Params, logger *slog.Logger) *playwrightSurface {
	return &playwrightSurface{
		params: params,
		logger: logger.With("component", "display", "engine", enginePlaywright),
		run:    execRunner,
	}
}

func (s *playwrightSurface) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.browserCtx != nil {
		return nil
	}

	prepareScreen(ctx, runtime.GOOS, s.params, s.run, s.logger)

	if err := playwright.Install(&playwright.RunOptions{Verbose: false}); err != nil {
		s.logger.Warn("playwright install failed, trying existing driver", "error", err)
	}

	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(false),
		Args:     kioskArgs(runtime.GOOS),
	})
	if err != nil {
		_ = pw.Stop()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	browserCtx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		NoViewport: playwright.Bool(true),
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return fmt.Errorf("failed to create browser context: %w", err)
	}

	s.pw = pw
	s.browser = browser
	s.browserCtx = browserCtx
	s.pages = nil
	s.targets = nil
	s.logger.Info("surface opened", "screen", s.params.Screen, "size", fmt.Sprintf("%dx%d", s.params.Width, s.params.Height))
	return nil
}

func (s *playwrightSurface) Sync(ctx context.Context, targets []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.browserCtx == nil {
		return errors.New("surface not open")
	}

	plan := planSync(s.targets, targets)

	for i := 0; i < plan.grow; i++ {
		page, err := s.browserCtx.NewPage()
		if err != nil {
			return fmt.Errorf("failed to open page: %w", err)
		}
		if _, err := page.Goto("about:blank"); err != nil {
			s.logger.Warn("blank page navigation failed", "error", err)
		}
		s.pages = append(s.pages, page)
	}
	for i := 0; i < plan.shrink; i++ {
		page := s.pages[len(s.pages)-1]
		s.pages = s.pages[:len(s.pages)-1]
		if err := page.Close(); err != nil {
			s.logger.Warn("closing surplus page failed", "error", err)
		}
	}

	next := slices.Clone(targets)
	for _, i := range plan.navigate {
		if _, err := s.pages[i].Goto(targets[i], playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			Timeout:   playwright.Float(float64(navigationTimeout.Milliseconds())),
		}); err != nil {
			s.logger.Warn("navigation failed", "position", i, "error", err)
			next[i] = ""
		}
	}
	s.targets = next
	s.logger.Debug("surface synced", "pages", len(targets), "navigated", len(plan.navigate))
	return nil
}

func (s *playwrightSurface) Show(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(s.pages) == 0 {
		return nil
	}

	index = clampIndex(index, len(s.pages))
	if err := s.pages[index].BringToFront(); err != nil {
		return fmt.Errorf("failed to raise page %d: %w", index, err)
	}
	return nil
}

func (s *playwrightSurface) Reload(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if index < 0 || index >= len(s.pages) {
		s.logger.Debug("reload index out of range", "index", index, "pages", len(s.pages))
		return nil
	}

	if _, err := s.pages[index].Reload(playwright.PageReloadOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(navigationTimeout.Milliseconds())),
	}); err != nil {
		return fmt.Errorf("failed to reload page %d: %w", index, err)
	}
	return nil
}

func (s *playwrightSurface) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasOpen := s.browserCtx != nil
	if s.browserCtx != nil {
		if err := s.browserCtx.Close(); err != nil {
			s.logger.Debug("browser context close failed", "error", err)
		}
		s.browserCtx = nil
	}
	s.pages = nil
	s.targets = nil

	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			s.logger.Debug("browser close failed", "error", err)
		}
		s.browser = nil
	}
	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			s.logger.Debug("playwright stop failed", "error", err)
		}
		s.pw = nil
	}

	if wasOpen {
		s.logger.Info("surface closed")
	}
	return nil
}
