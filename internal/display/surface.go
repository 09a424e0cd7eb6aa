// Package display owns the full-screen browser surface: one page per
// playlist target, reconciled on config reload and rotated by the player.
package display

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Engines selectable via the display.engine config key.
const (
	enginePlaywright = "playwright"
	engineCDP        = "cdp"
)

// navigationTimeout bounds every page navigation and reload.
const navigationTimeout = 30 * time.Second

// Params describes the OS display and how the browser is opened on it.
// Comparable: the player restarts the surface when any field changes.
type Params struct {
	Screen             string
	Width              int
	Height             int
	Rotation           string
	Engine             string
	RemoteDebuggingURL string
}

// Surface is the contract between the rotation controller and a browser
// engine. Implementations serialize the five operations against each other.
// Close is idempotent and best-effort.
type Surface interface {
	// Open prepares the OS display and starts the browser session.
	Open(ctx context.Context) error
	// Sync reconciles the page set to targets: pages are added or closed
	// so counts match, and only positions whose target changed navigate.
	Sync(ctx context.Context, targets []string) error
	// Show brings the page at index to the foreground. Out-of-range
	// indices clamp; an empty surface is a no-op.
	Show(ctx context.Context, index int) error
	// Reload re-navigates the page at index. Out-of-range is a no-op.
	Reload(ctx context.Context, index int) error
	// Close tears the session down. Errors are logged, not returned.
	Close(ctx context.Context) error
}

// New builds the surface engine selected by params.Engine.
func New(params Params, logger *slog.Logger) (Surface, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch params.Engine {
	case "", enginePlaywright:
		return newPlaywrightSurface(params, logger), nil
	case engineCDP:
		return newCDPSurface(params, logger), nil
	default:
		return nil, fmt.Errorf("unknown display engine %q", params.Engine)
	}
}

// syncPlan describes how to reconcile the current page set with a desired
// target list.
type syncPlan struct {
	grow     int
	shrink   int
	navigate []int
}

// planSync diffs the recorded targets against the desired ones. Positions
// beyond the recorded list always navigate; recorded positions navigate
// only when their target changed.
func planSync(recorded, desired []string) syncPlan {
	var plan syncPlan
	if len(desired) > len(recorded) {
		plan.grow = len(desired) - len(recorded)
	} else {
		plan.shrink = len(recorded) - len(desired)
	}
	for i, target := range desired {
		if i >= len(recorded) || recorded[i] != target {
			plan.navigate = append(plan.navigate, i)
		}
	}
	return plan
}

// clampIndex pins index into [0, length-1]. length must be positive.
func clampIndex(index, length int) int {
	if index < 0 {
		return 0
	}
	if index >= length {
		return length - 1
	}
	return index
}
