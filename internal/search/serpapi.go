package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MihirGambhire/linkedin-monitor/internal/query"
	"github.com/MihirGambhire/linkedin-monitor/pkg/httpclient"
)

const defaultSerpAPIBase = "https://serpapi.com/search.json"

// SerpAPI is the metered Google-engine provider. One Search call is
// one billable SerpAPI request.
type SerpAPI struct {
	apiKey   string
	baseURL  string
	language string
	region   string
	http     *httpclient.Client
	logger   *slog.Logger
}

// SerpAPIConfig configures the SerpAPI provider.
type SerpAPIConfig struct {
	// APIKey is required.
	APIKey string
	// BaseURL overrides the endpoint, for tests.
	BaseURL string
	// Language and Region map to Google's hl/gl parameters.
	Language string
	Region   string
	// HTTP is the client to call out with. A default one is built when nil.
	HTTP   *httpclient.Client
	Logger *slog.Logger
}

var _ Provider = (*SerpAPI)(nil)

// NewSerpAPI creates the provider.
func NewSerpAPI(cfg SerpAPIConfig) (*SerpAPI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("serpapi requires an API key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultSerpAPIBase
	}
	if cfg.HTTP == nil {
		hc, err := httpclient.New(httpclient.Config{
			Timeout:      30 * time.Second,
			MaxRedirects: 3,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build http client: %w", err)
		}
		cfg.HTTP = hc
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &SerpAPI{
		apiKey:   cfg.APIKey,
		baseURL:  cfg.BaseURL,
		language: cfg.Language,
		region:   cfg.Region,
		http:     cfg.HTTP,
		logger:   cfg.Logger,
	}, nil
}

func (s *SerpAPI) Name() string { return "serpapi" }

type serpResponse struct {
	Error          string `json:"error"`
	OrganicResults []struct {
		Position int    `json:"position"`
		Title    string `json:"title"`
		Link     string `json:"link"`
		Snippet  string `json:"snippet"`
	} `json:"organic_results"`
}

// Search issues one Google search through SerpAPI and keeps the
// organic results that point at LinkedIn.
func (s *SerpAPI) Search(ctx context.Context, q query.Query) ([]Result, error) {
	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", q.Text)
	params.Set("api_key", s.apiKey)
	if q.MaxResults > 0 {
		params.Set("num", strconv.Itoa(q.MaxResults))
	}
	if q.TimeFilter != "" {
		params.Set("tbs", "qdr:"+q.TimeFilter)
	}
	if s.language != "" {
		params.Set("hl", s.language)
	}
	if s.region != "" {
		params.Set("gl", s.region)
	}

	req, err := http.NewRequest(http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &Error{Provider: s.Name(), Category: q.Category, Kind: KindMalformed, Err: err}
	}

	res, err := s.http.Do(ctx, req)
	if err != nil {
		return nil, &Error{Provider: s.Name(), Category: q.Category, Kind: KindTransport, Err: err}
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return nil, &Error{Provider: s.Name(), Category: q.Category, Kind: KindAuth,
			Err: fmt.Errorf("status %d", res.StatusCode)}
	case res.StatusCode == http.StatusTooManyRequests:
		return nil, &Error{Provider: s.Name(), Category: q.Category, Kind: KindRateLimited,
			Err: fmt.Errorf("status %d", res.StatusCode)}
	case res.StatusCode != http.StatusOK:
		return nil, &Error{Provider: s.Name(), Category: q.Category, Kind: HTTPKind(res.StatusCode),
			Err: fmt.Errorf("unexpected status %d", res.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return nil, &Error{Provider: s.Name(), Category: q.Category, Kind: KindTransport, Err: err}
	}

	var parsed serpResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &Error{Provider: s.Name(), Category: q.Category, Kind: KindMalformed, Err: err}
	}

	// SerpAPI reports some failures as 200 with an error field.
	if parsed.Error != "" {
		return nil, &Error{Provider: s.Name(), Category: q.Category,
			Kind: classifySerpError(parsed.Error), Err: fmt.Errorf("%s", parsed.Error)}
	}

	now := time.Now().UTC()
	results := make([]Result, 0, len(parsed.OrganicResults))
	for _, item := range parsed.OrganicResults {
		link := cleanLinkedInURL(item.Link)
		if !strings.Contains(link, "linkedin.com") {
			continue
		}
		title := item.Title
		if title == "" {
			title = UntitledPost
		}
		results = append(results, Result{
			Title:    title,
			URL:      link,
			Snippet:  item.Snippet,
			Category: q.Category,
			Rank:     len(results),
			FoundAt:  now,
		})
	}

	s.logger.Debug("serpapi response parsed",
		"category", q.Category,
		"organic", len(parsed.OrganicResults),
		"linkedin", len(results))

	return results, nil
}

// classifySerpError maps SerpAPI's in-body error strings onto kinds.
// The two that matter operationally are a bad key and a spent monthly
// plan; anything else is treated as a malformed response.
func classifySerpError(msg string) string {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "api key") || strings.Contains(lower, "unauthorized"):
		return KindAuth
	case strings.Contains(lower, "searches") || strings.Contains(lower, "plan"):
		return KindRateLimited
	}
	return KindMalformed
}
