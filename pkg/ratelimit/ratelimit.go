// Package ratelimit paces outbound calls so a run never hammers an
// upstream. One limiter guards one upstream (the SERP API, the
// LinkedIn frontend).
package ratelimit

import (
	"context"
	"math/rand/v2"
	"time"
)

// Limiter releases one call per interval, each followed by a random
// hold-back so requests do not land on a metronome. Safe for
// concurrent use.
type Limiter struct {
	ticker   *time.Ticker
	interval time.Duration
	jitter   float64
}

// New builds a limiter with the given interval between calls. jitter
// is the fraction of the interval, clamped to [0, 1], by which each
// release may be randomly delayed. A non-positive interval disables
// pacing entirely.
func New(interval time.Duration, jitter float64) *Limiter {
	if interval <= 0 {
		return &Limiter{}
	}
	return &Limiter{
		ticker:   time.NewTicker(interval),
		interval: interval,
		jitter:   min(max(jitter, 0), 1),
	}
}

// PerMinute spreads n calls evenly across a minute. Search quotas are
// billed monthly but throttled per minute, so this is the constructor
// the search client reaches for.
func PerMinute(n int, jitter float64) *Limiter {
	if n <= 0 {
		return New(0, jitter)
	}
	return New(time.Minute/time.Duration(n), jitter)
}

// Wait blocks until the next call may go out or ctx is canceled.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.ticker == nil {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.ticker.C:
	}

	hold := l.holdback()
	if hold <= 0 {
		return nil
	}
	t := time.NewTimer(hold)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// holdback picks the extra delay applied after a tick.
func (l *Limiter) holdback() time.Duration {
	if l.jitter <= 0 {
		return 0
	}
	return time.Duration(rand.Float64() * l.jitter * float64(l.interval))
}

// Stop releases the underlying ticker.
func (l *Limiter) Stop() {
	if l.ticker != nil {
		l.ticker.Stop()
	}
}
