package player

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/marqueehq/marquee/internal/config"
)

// watchDebounce coalesces the burst of fsnotify events an editor or atomic
// rename produces into one reload.
const watchDebounce = 250 * time.Millisecond

// watchLoop reruns the reload transaction whenever the config file changes.
func (p *Player) watchLoop(ctx context.Context) {
	defer p.wg.Done()

	p.mu.Lock()
	mode := p.cfg.Behavior.Watch
	p.mu.Unlock()

	if mode == config.WatchNotify {
		if err := p.watchNotify(ctx); err != nil {
			p.logger.Warn("file notifications unavailable, falling back to polling", "error", err)
			p.watchPoll(ctx)
		}
		return
	}
	p.watchPoll(ctx)
}

// watchPoll stats the config file once per second and reloads when its
// mtime advances. A briefly missing file (atomic replace in flight) is
// skipped, not treated as an error.
func (p *Player) watchPoll(ctx context.Context) {
	ticker := time.NewTicker(p.watchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			info, err := os.Stat(p.cfgPath)
			if err != nil {
				p.logger.Debug("config stat failed", "error", err)
				continue
			}
			if !info.ModTime().After(p.lastMtime) {
				continue
			}
			p.lastMtime = info.ModTime()
			if err := p.Reload(ctx); err != nil {
				p.logger.Error("config reload failed", "error", err)
			}
		}
	}
}

// watchNotify watches the config file's directory through fsnotify. The
// directory, not the file, because editors and atomic writers replace the
// inode. Returns an error only when the watcher cannot be set up.
func (p *Player) watchNotify(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(p.cfgPath)); err != nil {
		return err
	}

	// The debounce timer only signals; the reload itself runs in this
	// goroutine so shutdown never races a half-applied transaction.
	reloads := make(chan struct{}, 1)
	var mu sync.Mutex
	var timer *time.Timer
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()
	scheduleReload := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(watchDebounce, func() {
			select {
			case reloads <- struct{}{}:
			default:
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-reloads:
			if err := p.Reload(ctx); err != nil {
				p.logger.Error("config reload failed", "error", err)
			}
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(p.cfgPath) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				scheduleReload()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.logger.Warn("config watch error", "error", err)
		}
	}
}
