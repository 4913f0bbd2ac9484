// Package search resolves category queries into LinkedIn post hits.
//
// A Provider is one search backend; the Client wraps a provider with
// the run budget, pacing, and bounded retries. The client is the only
// path to the network: every search call spends exactly one budget
// unit before the first byte goes out, retries included.
package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/MihirGambhire/linkedin-monitor/internal/query"
	"github.com/MihirGambhire/linkedin-monitor/pkg/budget"
	"github.com/MihirGambhire/linkedin-monitor/pkg/ratelimit"
	"github.com/MihirGambhire/linkedin-monitor/pkg/retry"
)

// UntitledPost is the display title for results whose provider entry
// carried no title.
const UntitledPost = "Untitled Post"

// cleanLinkedInURL drops the query and fragment from linkedin.com
// links; everything after the path is share-tracking noise. Other URLs
// pass through untouched.
func cleanLinkedInURL(url string) string {
	if !strings.Contains(url, "linkedin.com") {
		return url
	}
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		return url[:i]
	}
	return url
}

// Result is one organic search hit attributed to a category.
type Result struct {
	Title    string    `json:"title"`
	URL      string    `json:"url"`
	Snippet  string    `json:"snippet"`
	Category string    `json:"category"`
	Rank     int       `json:"rank"` // 0-based position within the category's results
	FoundAt  time.Time `json:"found_at"`
}

// Provider abstracts a search backend that resolves one category query
// into organic results. Implementations may call a metered API or
// scrape an HTML endpoint; either way they classify failures as *Error
// and return only LinkedIn URLs, ranked 0..n in response order.
type Provider interface {
	Name() string
	Search(ctx context.Context, q query.Query) ([]Result, error)
}

// Config wires a Client.
type Config struct {
	Provider Provider
	// Budget is the per-run search allowance. Required.
	Budget *budget.Counter
	// Limiter paces calls to the provider. Optional.
	Limiter *ratelimit.Limiter
	// Retry bounds attempts per call. The zero value means no retries.
	Retry  retry.Policy
	Logger *slog.Logger
}

// Client executes category searches against a single provider with
// budget enforcement, pacing, and retries. Safe for concurrent use.
type Client struct {
	provider Provider
	budget   *budget.Counter
	limiter  *ratelimit.Limiter
	retry    retry.Policy
	logger   *slog.Logger
}

// NewClient creates a search client. Provider and Budget are required.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Provider == nil {
		return nil, errors.New("search client requires a provider")
	}
	if cfg.Budget == nil {
		return nil, errors.New("search client requires a budget counter")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		provider: cfg.Provider,
		budget:   cfg.Budget,
		limiter:  cfg.Limiter,
		retry:    cfg.Retry,
		logger:   cfg.Logger,
	}, nil
}

// Search runs one category query. It spends one budget unit up front;
// once the budget is gone it returns ErrQuotaExhausted without touching
// the network. Transient provider failures are retried within the
// configured policy, all on the same budget unit.
func (c *Client) Search(ctx context.Context, q query.Query) ([]Result, error) {
	if !c.budget.TryAcquire() {
		return nil, ErrQuotaExhausted
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var results []Result
	err := retry.Do(ctx, c.retry, Retryable, func(ctx context.Context) error {
		var attemptErr error
		results, attemptErr = c.provider.Search(ctx, q)
		return attemptErr
	})
	if err != nil {
		return nil, err
	}

	if q.MaxResults > 0 && len(results) > q.MaxResults {
		results = results[:q.MaxResults]
	}

	c.logger.Debug("search complete",
		"provider", c.provider.Name(),
		"category", q.Category,
		"results", len(results),
		"budget_remaining", c.budget.Remaining())

	return results, nil
}

// Remaining exposes the unspent budget, mostly for run summaries.
func (c *Client) Remaining() int {
	return c.budget.Remaining()
}
