// Package backoff provides context-aware waiting and exponential retry
// delays for the player's loops and the hub client.
package backoff

import (
	"math"
	"math/rand"
	"time"
)

// Policy defines exponential backoff between retry attempts.
type Policy struct {
	// Initial is the delay before the second attempt.
	Initial time.Duration
	// Max caps the computed delay.
	Max time.Duration
	// Factor is the exponential growth factor per attempt.
	Factor float64
	// Jitter is the randomization fraction (0.0 to 1.0) added on top.
	Jitter float64
}

// DefaultPolicy suits transient network failures: 500ms initial, 30s cap.
func DefaultPolicy() Policy {
	return Policy{
		Initial: 500 * time.Millisecond,
		Max:     30 * time.Second,
		Factor:  2,
		Jitter:  0.1,
	}
}

// Delay computes the backoff delay for a given attempt number.
// Attempt numbers start at 1; the first attempt has no preceding delay.
func (p Policy) Delay(attempt int) time.Duration {
	return p.delay(attempt, rand.Float64()) // #nosec G404 -- jitter does not require cryptographic randomness
}

// delay takes the random value as a parameter so tests are deterministic.
func (p Policy) delay(attempt int, random float64) time.Duration {
	exp := math.Max(float64(attempt-1), 0)
	base := float64(p.Initial) * math.Pow(p.Factor, exp)
	total := base + base*p.Jitter*random
	if limit := float64(p.Max); p.Max > 0 && total > limit {
		total = limit
	}
	return time.Duration(total)
}
