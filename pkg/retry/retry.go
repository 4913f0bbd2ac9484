// Package retry provides bounded retries with exponential backoff for
// calls to flaky upstreams.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Policy describes how many times to attempt an operation and how long
// to back off between attempts.
type Policy struct {
	// MaxAttempts is the total number of attempts including the first.
	// Values below 1 are treated as 1.
	MaxAttempts int
	// BaseDelay is the wait before the first retry.
	BaseDelay time.Duration
	// MaxDelay caps the grown delay.
	MaxDelay time.Duration
	// Multiplier grows the delay after each attempt. Values below 1
	// are treated as 1 (constant delay).
	Multiplier float64
	// Jitter randomizes each delay by +/- (Jitter * delay), clamped to [0, 1].
	Jitter float64
}

// DefaultPolicy suits metered search APIs: one initial attempt plus two
// retries, backing off 1s then 2s. Anything longer burns wall-clock
// time a scheduled run does not have.
var DefaultPolicy = Policy{
	MaxAttempts: 3,
	BaseDelay:   1 * time.Second,
	MaxDelay:    8 * time.Second,
	Multiplier:  2.0,
	Jitter:      0.2,
}

// Delay returns the backoff before retry number n (1-based). It grows
// geometrically from BaseDelay, is capped at MaxDelay, and carries the
// configured jitter.
func (p Policy) Delay(n int) time.Duration {
	if n < 1 {
		n = 1
	}

	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}

	d := float64(p.BaseDelay) * math.Pow(mult, float64(n-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}

	jitter := p.Jitter
	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}
	if jitter > 0 {
		d += d * jitter * ((rand.Float64() * 2) - 1)
	}

	if d < 0 {
		return 0
	}
	return time.Duration(d)
}

// Do runs op up to p.MaxAttempts times. After a failed attempt it asks
// shouldRetry whether the error is worth retrying; any error rejected
// there is returned immediately. A nil shouldRetry retries everything.
// Backoff sleeps respect ctx cancellation.
func Do(ctx context.Context, p Policy, shouldRetry func(error) bool, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt == attempts {
			break
		}
		if shouldRetry != nil && !shouldRetry(lastErr) {
			break
		}

		select {
		case <-time.After(p.Delay(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
