package capture

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MihirGambhire/linkedin-monitor/internal/fingerprint"
	"github.com/MihirGambhire/linkedin-monitor/pkg/proxy"
	"github.com/MihirGambhire/linkedin-monitor/pkg/useragent"
)

// ProbeResult is what the preflight saw for one post URL.
type ProbeResult struct {
	URL        string
	StatusCode int
	// FinalURL is where the request landed after redirects. LinkedIn
	// walls off posts by redirecting, so this is the strongest signal.
	FinalURL string
	Header   http.Header
	Body     []byte
	// Err is set on transport failure; the other fields are then zero.
	Err     error
	Blocked bool
	Signal  string
}

// Detector inspects a probe result for one wall signature. It returns
// whether the post is walled and a short signal name for logs.
type Detector func(res *ProbeResult) (blocked bool, signal string)

// DefaultDetectors returns the wall signatures checked in order.
func DefaultDetectors() []Detector {
	return []Detector{
		detectAuthwall,
		detectRequestDenied,
		detectLoginRedirect,
		detectCheckpoint,
	}
}

// Analyze runs the detectors against a probe result and reports the
// first wall found.
func Analyze(res *ProbeResult, detectors []Detector) (bool, string) {
	for _, detect := range detectors {
		if blocked, signal := detect(res); blocked {
			return true, signal
		}
	}
	return false, ""
}

// detectAuthwall catches the public authwall, served either as a
// redirect to /authwall or inline in the page body.
func detectAuthwall(res *ProbeResult) (bool, string) {
	if strings.Contains(res.FinalURL, "/authwall") {
		return true, "authwall"
	}
	body := strings.ToLower(string(res.Body))
	if strings.Contains(body, "authwall") || strings.Contains(body, "join linkedin") {
		return true, "authwall"
	}
	return false, ""
}

// detectRequestDenied catches LinkedIn's bot denial, which answers
// with status 999 and no useful body.
func detectRequestDenied(res *ProbeResult) (bool, string) {
	if res.StatusCode == 999 || res.StatusCode == http.StatusTooManyRequests {
		return true, "request_denied"
	}
	return false, ""
}

// detectLoginRedirect catches hard redirects to the login page.
func detectLoginRedirect(res *ProbeResult) (bool, string) {
	final, err := url.Parse(res.FinalURL)
	if err != nil {
		return false, ""
	}
	path := strings.TrimSuffix(final.Path, "/")
	if path == "/login" || strings.HasSuffix(path, "/uas/login") {
		return true, "login_redirect"
	}
	return false, ""
}

// detectCheckpoint catches the challenge flow LinkedIn routes
// suspicious clients through.
func detectCheckpoint(res *ProbeResult) (bool, string) {
	if strings.Contains(res.FinalURL, "/checkpoint/") {
		return true, "checkpoint"
	}
	if strings.Contains(strings.ToLower(string(res.Body)), "captcha") {
		return true, "checkpoint"
	}
	return false, ""
}

// ProberConfig wires a Prober.
type ProberConfig struct {
	// Fingerprint selects the TLS ClientHello the probe presents.
	// Empty means the Chrome profile.
	Fingerprint fingerprint.Profile
	UserAgents  *useragent.Pool
	Proxies     *proxy.Pool
	Timeout     time.Duration
	// MaxBodySize caps how much of the response is read for the body
	// signature checks.
	MaxBodySize int64
	Detectors   []Detector
	Logger      *slog.Logger
}

// Prober issues a plain GET against a post URL before the browser
// visit. Its verdict feeds logs and proxy health; it never blocks a
// capture. Each check draws a fresh proxy and User-Agent so probe
// traffic does not build a pattern.
type Prober struct {
	profile   fingerprint.Profile
	uas       *useragent.Pool
	proxies   *proxy.Pool
	timeout   time.Duration
	maxBody   int64
	detectors []Detector
	logger    *slog.Logger
}

// NewProber validates the profile and applies defaults.
func NewProber(cfg ProberConfig) (*Prober, error) {
	if !cfg.Fingerprint.Valid() {
		return nil, fmt.Errorf("unknown fingerprint profile %q", cfg.Fingerprint)
	}
	if cfg.UserAgents == nil {
		cfg.UserAgents = useragent.NewPool(nil)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = 256 << 10
	}
	if cfg.Detectors == nil {
		cfg.Detectors = DefaultDetectors()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Prober{
		profile:   cfg.Fingerprint,
		uas:       cfg.UserAgents,
		proxies:   cfg.Proxies,
		timeout:   cfg.Timeout,
		maxBody:   cfg.MaxBodySize,
		detectors: cfg.Detectors,
		logger:    cfg.Logger,
	}, nil
}

// Check probes one URL and classifies the response.
func (p *Prober) Check(ctx context.Context, target string) ProbeResult {
	res := ProbeResult{URL: target}

	var pu *url.URL
	if p.proxies != nil {
		pu = p.proxies.Next()
	}

	rt, err := fingerprint.Transport(p.profile, func(*http.Request) (*url.URL, error) {
		return pu, nil
	})
	if err != nil {
		res.Err = err
		return res
	}

	client := &http.Client{Transport: rt, Timeout: p.timeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		res.Err = fmt.Errorf("failed to build probe request: %w", err)
		return res
	}
	req.Header.Set("User-Agent", p.uas.Next())
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := client.Do(req)
	if err != nil {
		if pu != nil {
			_ = p.proxies.MarkFailure(pu)
		}
		res.Err = fmt.Errorf("probe request failed: %w", err)
		return res
	}
	defer resp.Body.Close()

	if pu != nil {
		_ = p.proxies.MarkSuccess(pu)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBody))
	if err != nil {
		p.logger.Debug("probe body truncated", "url", target, "error", err)
	}

	res.StatusCode = resp.StatusCode
	res.FinalURL = resp.Request.URL.String()
	res.Header = resp.Header
	res.Body = body
	res.Blocked, res.Signal = Analyze(&res, p.detectors)
	return res
}
