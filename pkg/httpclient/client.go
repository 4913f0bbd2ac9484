// Package httpclient builds the outbound HTTP clients the search
// providers ride on. It layers redirect limits, cookie jars, and a
// fallback User-Agent over net/http so each provider states its policy
// in one config literal.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"
)

const defaultTimeout = 30 * time.Second

// Config selects the client policy.
type Config struct {
	// Timeout bounds each request end to end. Zero means 30s.
	Timeout time.Duration

	// MaxRedirects is how many hops to follow before failing the
	// request. Negative stops following entirely and hands the
	// redirect response back to the caller.
	MaxRedirects int

	// UseCookieJar keeps cookies across requests. Some result pages
	// only render once a session cookie is presented.
	UseCookieJar bool

	// UserAgent is applied to outgoing requests that don't set their own.
	UserAgent string

	// Transport overrides the default transport, e.g. a proxied or
	// fingerprinted round tripper.
	Transport http.RoundTripper
}

// Client is an http.Client with the policy from Config baked in.
// Requests go through Do so every call carries a context.
type Client struct {
	*http.Client

	userAgent string
}

// New assembles a client from cfg.
func New(cfg Config) (*Client, error) {
	hc := &http.Client{
		Timeout:       cfg.Timeout,
		CheckRedirect: redirectPolicy(cfg.MaxRedirects),
		Transport:     cfg.Transport,
	}
	if hc.Timeout == 0 {
		hc.Timeout = defaultTimeout
	}
	if cfg.UseCookieJar {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		hc.Jar = jar
	}
	return &Client{Client: hc, userAgent: cfg.UserAgent}, nil
}

func redirectPolicy(max int) func(*http.Request, []*http.Request) error {
	if max < 0 {
		return func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return func(_ *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return fmt.Errorf("stopped after %d redirects", max)
		}
		return nil
	}
}

// Do sends req with ctx attached. The request is cloned first, so the
// caller's copy is never mutated.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if ctx == nil {
		return nil, errors.New("context cannot be nil")
	}

	r := req.Clone(ctx)
	if c.userAgent != "" && r.Header.Get("User-Agent") == "" {
		r.Header.Set("User-Agent", c.userAgent)
	}

	res, err := c.Client.Do(r)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return res, nil
}
