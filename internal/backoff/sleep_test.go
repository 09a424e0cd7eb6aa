package backoff

import (
	"context"
	"testing"
	"time"
)

func TestSleep_Completes(t *testing.T) {
	ctx := context.Background()
	start := time.Now()

	err := Sleep(ctx, 50*time.Millisecond)

	elapsed := time.Since(start)
	if err != nil {
		t.Errorf("Sleep() error = %v, want nil", err)
	}
	if elapsed < 45*time.Millisecond {
		t.Errorf("Sleep() completed too quickly: %v", elapsed)
	}
}

func TestSleep_NonPositiveDuration(t *testing.T) {
	ctx := context.Background()

	for _, d := range []time.Duration{0, -100 * time.Millisecond} {
		start := time.Now()
		if err := Sleep(ctx, d); err != nil {
			t.Errorf("Sleep(%v) error = %v, want nil", d, err)
		}
		if elapsed := time.Since(start); elapsed > 10*time.Millisecond {
			t.Errorf("Sleep(%v) took too long: %v", d, elapsed)
		}
	}
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	start := time.Now()

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := Sleep(ctx, 500*time.Millisecond)

	elapsed := time.Since(start)
	if err != context.Canceled {
		t.Errorf("Sleep() error = %v, want context.Canceled", err)
	}
	if elapsed > 100*time.Millisecond {
		t.Errorf("Sleep() did not cancel quickly: %v", elapsed)
	}
}

func TestSleep_AlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Sleep(ctx, 500*time.Millisecond)
	elapsed := time.Since(start)

	if err != context.Canceled {
		t.Errorf("Sleep() error = %v, want context.Canceled", err)
	}
	if elapsed > 10*time.Millisecond {
		t.Errorf("Sleep() with cancelled context took too long: %v", elapsed)
	}
}

func TestPolicySleep_UsesAttemptDelay(t *testing.T) {
	ctx := context.Background()
	policy := Policy{Initial: 10 * time.Millisecond, Max: time.Second, Factor: 2, Jitter: 0}

	start := time.Now()
	err := policy.Sleep(ctx, 1)
	elapsed := time.Since(start)

	if err != nil {
		t.Errorf("Policy.Sleep() error = %v, want nil", err)
	}
	if elapsed < 8*time.Millisecond || elapsed > 50*time.Millisecond {
		t.Errorf("Policy.Sleep() elapsed = %v, want ~10ms", elapsed)
	}
}
