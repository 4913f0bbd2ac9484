package search

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/MihirGambhire/linkedin-monitor/internal/query"
	"github.com/MihirGambhire/linkedin-monitor/pkg/httpclient"
	"github.com/MihirGambhire/linkedin-monitor/pkg/useragent"
)

const defaultDuckDuckGoBase = "https://html.duckduckgo.com/html/"

// DuckDuckGo scrapes the HTML endpoint. It is the keyless fallback for
// runs without a SerpAPI plan; results are noisier and the site filter
// is honored less strictly than by Google.
type DuckDuckGo struct {
	baseURL  string
	language string
	region   string
	http     *httpclient.Client
	uas      *useragent.Pool
	logger   *slog.Logger
}

// DuckDuckGoConfig configures the provider.
type DuckDuckGoConfig struct {
	// BaseURL overrides the endpoint, for tests.
	BaseURL string
	// Language and Region combine into the kl locale parameter.
	Language string
	Region   string
	// HTTP is the client to call out with. A default one is built when nil.
	HTTP *httpclient.Client
	// UserAgents rotates request UAs. Defaults to the stock pool.
	UserAgents *useragent.Pool
	Logger     *slog.Logger
}

var _ Provider = (*DuckDuckGo)(nil)

// NewDuckDuckGo creates the provider.
func NewDuckDuckGo(cfg DuckDuckGoConfig) (*DuckDuckGo, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultDuckDuckGoBase
	}
	if cfg.HTTP == nil {
		hc, err := httpclient.New(httpclient.Config{
			Timeout:      30 * time.Second,
			MaxRedirects: 3,
			UseCookieJar: true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build http client: %w", err)
		}
		cfg.HTTP = hc
	}
	if cfg.UserAgents == nil {
		cfg.UserAgents = useragent.NewPool(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &DuckDuckGo{
		baseURL:  cfg.BaseURL,
		language: cfg.Language,
		region:   cfg.Region,
		http:     cfg.HTTP,
		uas:      cfg.UserAgents,
		logger:   cfg.Logger,
	}, nil
}

func (d *DuckDuckGo) Name() string { return "duckduckgo" }

// Search scrapes one results page and keeps the hits that point at
// LinkedIn.
func (d *DuckDuckGo) Search(ctx context.Context, q query.Query) ([]Result, error) {
	params := url.Values{}
	params.Set("q", q.Text)
	if q.TimeFilter != "" {
		params.Set("df", q.TimeFilter)
	}
	if kl := d.locale(); kl != "" {
		params.Set("kl", kl)
	}

	req, err := http.NewRequest(http.MethodGet, d.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &Error{Provider: d.Name(), Category: q.Category, Kind: KindMalformed, Err: err}
	}
	req.Header.Set("User-Agent", d.uas.Random())
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	res, err := d.http.Do(ctx, req)
	if err != nil {
		return nil, &Error{Provider: d.Name(), Category: q.Category, Kind: KindTransport, Err: err}
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusForbidden || res.StatusCode == http.StatusTooManyRequests:
		// DDG answers both ways when it decides a client is a bot.
		return nil, &Error{Provider: d.Name(), Category: q.Category, Kind: KindRateLimited,
			Err: fmt.Errorf("status %d", res.StatusCode)}
	case res.StatusCode != http.StatusOK:
		return nil, &Error{Provider: d.Name(), Category: q.Category, Kind: HTTPKind(res.StatusCode),
			Err: fmt.Errorf("unexpected status %d", res.StatusCode)}
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, &Error{Provider: d.Name(), Category: q.Category, Kind: KindMalformed, Err: err}
	}

	now := time.Now().UTC()
	var results []Result
	doc.Find("div.result").Each(func(i int, s *goquery.Selection) {
		anchor := s.Find("a.result__a").First()
		href, exists := anchor.Attr("href")
		if !exists {
			return
		}

		target := cleanLinkedInURL(unwrapRedirect(href))
		if !strings.Contains(target, "linkedin.com") {
			return
		}

		title := strings.TrimSpace(anchor.Text())
		if title == "" {
			title = UntitledPost
		}

		results = append(results, Result{
			Title:    title,
			URL:      target,
			Snippet:  strings.TrimSpace(s.Find(".result__snippet").First().Text()),
			Category: q.Category,
			Rank:     len(results),
			FoundAt:  now,
		})
	})

	d.logger.Debug("duckduckgo response parsed",
		"category", q.Category,
		"linkedin", len(results))

	return results, nil
}

func (d *DuckDuckGo) locale() string {
	if d.region == "" || d.language == "" {
		return ""
	}
	return strings.ToLower(d.region) + "-" + strings.ToLower(d.language)
}

// unwrapRedirect resolves DDG's /l/?uddg=<encoded> redirect wrapper to
// the real target. Unwrappable hrefs are returned as-is.
func unwrapRedirect(href string) string {
	if !strings.Contains(href, "duckduckgo.com/l/") && !strings.HasPrefix(href, "/l/") {
		return href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
