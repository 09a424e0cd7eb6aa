package backoff

import "context"

// Retry runs fn until it succeeds, maxAttempts is exhausted, or ctx is
// cancelled. maxAttempts <= 0 retries without limit. The attempt number
// passed to fn starts at 1. On exhaustion the last error from fn is
// returned; on cancellation, ctx.Err().
func Retry(ctx context.Context, policy Policy, maxAttempts int, fn func(attempt int) error) error {
	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}

		if maxAttempts > 0 && attempt >= maxAttempts {
			return lastErr
		}
		if err := policy.Sleep(ctx, attempt); err != nil {
			return err
		}
	}
}
