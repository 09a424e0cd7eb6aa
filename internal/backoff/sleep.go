package backoff

import (
	"context"
	"time"
)

// Sleep blocks for d or until ctx is cancelled, whichever comes first.
// Non-positive durations return immediately. Returns ctx.Err() on
// cancellation, nil otherwise.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Sleep waits out the policy delay for the given attempt, racing ctx.
func (p Policy) Sleep(ctx context.Context, attempt int) error {
	return Sleep(ctx, p.Delay(attempt))
}
