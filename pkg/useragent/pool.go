// Package useragent carries the User-Agent strings the monitor
// presents. The capture browser pins one Chrome build; the search and
// probe clients rotate across a small pool of the same family.
package useragent

import (
	"math/rand/v2"
	"sync/atomic"
)

// Browser is the User-Agent the headless capture session presents.
// Probes reuse it by default so the preflight request and the real
// browser visit look like the same client to LinkedIn's edge.
const Browser = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DefaultPool rotates across modern Chrome-family desktop profiles.
// Mixing in Firefox or Safari strings would contradict the Chrome TLS
// fingerprint the probe transport presents, so the pool stays in
// family.
var DefaultPool = []string{
	Browser,
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
}

// Pool hands out User-Agent strings, in rotation or at random. Safe
// for concurrent use.
type Pool struct {
	agents []string
	cursor atomic.Uint64
}

// NewPool copies agents into a pool. An empty slice falls back to
// DefaultPool.
func NewPool(agents []string) *Pool {
	if len(agents) == 0 {
		agents = DefaultPool
	}
	p := &Pool{agents: make([]string, len(agents))}
	copy(p.agents, agents)
	return p
}

// Next returns agents round-robin, wrapping at the end.
func (p *Pool) Next() string {
	if len(p.agents) == 0 {
		return ""
	}
	n := p.cursor.Add(1) - 1
	return p.agents[n%uint64(len(p.agents))]
}

// Random returns a uniformly chosen agent.
func (p *Pool) Random() string {
	if len(p.agents) == 0 {
		return ""
	}
	return p.agents[rand.IntN(len(p.agents))]
}

// All returns a copy of the pool's agents.
func (p *Pool) All() []string {
	out := make([]string, len(p.agents))
	copy(out, p.agents)
	return out
}
