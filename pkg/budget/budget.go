// Package budget tracks a fixed per-run allowance of upstream calls.
//
// SERP APIs bill per search, so a runaway category list must never be
// able to spend more than the operator agreed to. A Counter is handed
// to the search client at the start of a run and every search call
// spends exactly one unit up front, whether or not the call succeeds.
package budget

import "sync/atomic"

// Counter is a concurrency-safe countdown of remaining search calls.
// The zero value is exhausted; use New.
type Counter struct {
	remaining atomic.Int64
	limit     int64
}

// New creates a counter holding n units. Negative n is clamped to zero.
func New(n int) *Counter {
	if n < 0 {
		n = 0
	}
	c := &Counter{limit: int64(n)}
	c.remaining.Store(int64(n))
	return c
}

// TryAcquire spends one unit. It reports false, without side effects,
// once the counter has reached zero. The counter never goes negative
// no matter how many goroutines race on it.
func (c *Counter) TryAcquire() bool {
	for {
		cur := c.remaining.Load()
		if cur <= 0 {
			return false
		}
		if c.remaining.CompareAndSwap(cur, cur-1) {
			return true
		}
	}
}

// Remaining returns the number of unspent units.
func (c *Counter) Remaining() int {
	return int(c.remaining.Load())
}

// Limit returns the allowance the counter started with.
func (c *Counter) Limit() int {
	return int(c.limit)
}

// Spent returns how many units have been consumed so far.
func (c *Counter) Spent() int {
	return c.Limit() - c.Remaining()
}

// Exhausted reports whether no units remain.
func (c *Counter) Exhausted() bool {
	return c.remaining.Load() <= 0
}
