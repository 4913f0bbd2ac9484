// Package proxy rotates capture egress through a pool of proxies with
// failure-based cooldowns.
package proxy

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

// Config bounds how failures take a proxy out of rotation.
type Config struct {
	// MaxFailures disables a proxy once its failure count reaches it.
	// Zero means 3.
	MaxFailures int
	// Cooldown is how long a disabled proxy sits out before it is
	// retried. Zero means 5 minutes.
	Cooldown time.Duration
}

// endpoint is one proxy with its health state, guarded by the pool
// mutex.
type endpoint struct {
	url      *url.URL
	failures int
	down     bool
	downTil  time.Time
}

// Pool hands out proxies round-robin, skipping the ones that failed
// too often until their cooldown passes. LinkedIn rate limits by IP,
// so rotating keeps long capture runs from tripping the authwall on
// every post.
type Pool struct {
	mu          sync.Mutex
	endpoints   []*endpoint
	byKey       map[string]*endpoint
	next        int
	maxFailures int
	cooldown    time.Duration
}

// NewPool creates an empty pool.
func NewPool(cfg Config) *Pool {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	return &Pool{
		byKey:       make(map[string]*endpoint),
		maxFailures: cfg.MaxFailures,
		cooldown:    cfg.Cooldown,
	}
}

// Add parses and registers proxy URLs. A bare host:port gets an http
// scheme; duplicates are ignored.
func (p *Pool) Add(urls ...string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, raw := range urls {
		if !strings.Contains(raw, "://") {
			raw = "http://" + raw
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid proxy url %q: %w", raw, err)
		}
		key := u.String()
		if _, dup := p.byKey[key]; dup {
			continue
		}
		ep := &endpoint{url: u}
		p.endpoints = append(p.endpoints, ep)
		p.byKey[key] = ep
	}
	return nil
}

// LoadFile adds proxies from a file, one URL per line. Blank lines and
// lines starting with # are skipped.
func (p *Pool) LoadFile(path string) error {
	fh, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open proxy file: %w", err)
	}
	defer fh.Close()

	var urls []string
	sc := bufio.NewScanner(fh)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("failed to read proxy file: %w", err)
	}

	return p.Add(urls...)
}

// Size reports how many proxies are registered, healthy or not.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.endpoints)
}

// Next returns the next usable proxy, or nil when the pool is empty or
// every proxy is cooling down. Callers treat nil as "go direct". A
// proxy whose cooldown has passed rejoins rotation with a clean slate.
func (p *Pool) Next() *url.URL {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	for range p.endpoints {
		ep := p.endpoints[p.next]
		p.next = (p.next + 1) % len(p.endpoints)

		if ep.down && now.After(ep.downTil) {
			ep.down = false
			ep.failures = 0
		}
		if !ep.down {
			return ep.url
		}
	}
	return nil
}

// MarkSuccess decays the proxy's failure count.
func (p *Pool) MarkSuccess(u *url.URL) error {
	return p.mark(u, func(ep *endpoint) {
		if ep.failures > 0 {
			ep.failures--
		}
	})
}

// MarkFailure counts a failure and starts the cooldown once the proxy
// reaches the configured maximum.
func (p *Pool) MarkFailure(u *url.URL) error {
	return p.mark(u, func(ep *endpoint) {
		ep.failures++
		if ep.failures >= p.maxFailures {
			ep.down = true
			ep.downTil = time.Now().Add(p.cooldown)
		}
	})
}

func (p *Pool) mark(u *url.URL, apply func(*endpoint)) error {
	if u == nil {
		return errors.New("nil proxy url")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ep, ok := p.byKey[u.String()]
	if !ok {
		return fmt.Errorf("unknown proxy %q", u)
	}
	apply(ep)
	return nil
}
