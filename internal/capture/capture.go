// Package capture renders public LinkedIn posts in headless Chrome and
// saves viewport screenshots. A capture can end four ways: a clean
// shot, a shot taken after dismissing the login overlay, a navigation
// timeout, or a failure. None of them abort the run; the artifact
// records what happened and the digest reflects it.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/MihirGambhire/linkedin-monitor/pkg/proxy"
	"github.com/MihirGambhire/linkedin-monitor/pkg/useragent"
)

// Status classifies the outcome of one capture attempt.
type Status string

const (
	StatusOK                 Status = "ok"
	StatusLoginWallDismissed Status = "login_wall_dismissed"
	StatusTimeout            Status = "timeout"
	StatusFailed             Status = "failed"
	// StatusSkipped marks posts that were never attempted, either
	// because captures are disabled or the run cap trimmed them. The
	// capturer itself never produces it.
	StatusSkipped Status = "skipped"
)

// Target is one post to screenshot and where to put the PNG.
type Target struct {
	URL  string
	Path string
}

// Artifact records the outcome of one capture attempt.
type Artifact struct {
	URL     string        `json:"url"`
	Path    string        `json:"path,omitempty"`
	Status  Status        `json:"status"`
	Reason  string        `json:"reason,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
}

// Skipped synthesizes the artifact for a post that was never attempted.
func Skipped(url, reason string) Artifact {
	return Artifact{URL: url, Status: StatusSkipped, Reason: reason}
}

// Config wires a Capturer.
type Config struct {
	OutputDir      string
	ViewportWidth  int
	ViewportHeight int
	// NavTimeout bounds one capture end to end. Exceeding it yields a
	// timeout artifact, not an error.
	NavTimeout time.Duration
	// SettleDelay lets the feed hydrate before the overlay check and
	// the shot.
	SettleDelay time.Duration
	// UserAgent presented by the browser. Defaults to the pinned
	// Chrome UA so probe and browser match.
	UserAgent string
	// Proxies optionally routes browser traffic. The pool is consulted
	// once per Capturer; Chrome takes its proxy at process start.
	Proxies *proxy.Pool
	// DisableHeadless pops a visible browser for local debugging.
	DisableHeadless bool

	// Prober, when set, runs an HTTP preflight per post. Its verdict
	// only feeds logs and proxy health; the browser visit happens
	// regardless, since overlay dismissal handles soft walls that a
	// probe cannot predict.
	Prober *Prober

	Logger *slog.Logger
}

// Capturer drives one headless Chrome process. Each Capture call runs
// in its own tab; the process is shared for the life of the run.
type Capturer struct {
	cfg         Config
	allocCtx    context.Context
	allocCancel context.CancelFunc
	logger      *slog.Logger
}

var _ Engine = (*Capturer)(nil)

// New starts the browser allocator and prepares the output directory.
func New(cfg Config) (*Capturer, error) {
	if cfg.OutputDir == "" {
		return nil, errors.New("capture requires an output directory")
	}
	if cfg.ViewportWidth <= 0 {
		cfg.ViewportWidth = 1280
	}
	if cfg.ViewportHeight <= 0 {
		cfg.ViewportHeight = 900
	}
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 30 * time.Second
	}
	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = 0
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = useragent.Browser
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	execOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	execOpts = append(execOpts,
		chromedp.Flag("headless", !cfg.DisableHeadless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("lang", "en-US"),
		chromedp.WindowSize(cfg.ViewportWidth, cfg.ViewportHeight),
		chromedp.UserAgent(cfg.UserAgent),
	)

	if cfg.Proxies != nil {
		if pu := cfg.Proxies.Next(); pu != nil {
			execOpts = append(execOpts, chromedp.ProxyServer(pu.String()))
			cfg.Logger.Info("browser egress via proxy", "proxy", pu.Host)
		}
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), execOpts...)

	return &Capturer{
		cfg:         cfg,
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		logger:      cfg.Logger,
	}, nil
}

// Close tears down the browser process.
func (c *Capturer) Close() {
	c.allocCancel()
}

// Capture navigates to one post, waits for the feed to settle,
// dismisses the sign-in overlay if LinkedIn raised one, and writes the
// viewport screenshot to t.Path. The returned artifact always
// describes the outcome; Capture never fails the caller.
func (c *Capturer) Capture(ctx context.Context, t Target) Artifact {
	start := time.Now()

	if c.cfg.Prober != nil {
		probe := c.cfg.Prober.Check(ctx, t.URL)
		switch {
		case probe.Err != nil:
			c.logger.Debug("preflight probe failed", "url", t.URL, "error", probe.Err)
		case probe.Blocked:
			c.logger.Warn("preflight flagged a wall, attempting capture anyway",
				"url", t.URL, "signal", probe.Signal, "status", probe.StatusCode)
		}
	}

	tabCtx, tabCancel := chromedp.NewContext(c.allocCtx)
	defer tabCancel()

	navCtx, navCancel := context.WithTimeout(tabCtx, c.cfg.NavTimeout)
	defer navCancel()

	// Honor caller cancellation without tying tab lifetime to it.
	stop := propagateCancel(ctx, navCancel)
	defer stop()

	var dismissed string
	var shot []byte
	err := chromedp.Run(navCtx,
		chromedp.Navigate(t.URL),
		chromedp.Sleep(c.cfg.SettleDelay),
		dismissOverlays(&dismissed),
		chromedp.CaptureScreenshot(&shot),
	)

	elapsed := time.Since(start)
	if err != nil {
		status := classifyRunError(err)
		reason := err.Error()
		if status == StatusTimeout {
			reason = fmt.Sprintf("navigation exceeded %s", c.cfg.NavTimeout)
			c.logger.Warn("capture timed out", "url", t.URL, "timeout", c.cfg.NavTimeout)
		} else {
			c.logger.Warn("capture failed", "url", t.URL, "error", err)
		}
		return Artifact{URL: t.URL, Status: status, Reason: reason, Elapsed: elapsed}
	}

	if err := os.WriteFile(t.Path, shot, 0o644); err != nil {
		c.logger.Error("failed to write screenshot", "path", t.Path, "error", err)
		return Artifact{URL: t.URL, Status: StatusFailed, Reason: err.Error(), Elapsed: elapsed}
	}

	status := StatusOK
	if dismissed != "" {
		status = StatusLoginWallDismissed
		c.logger.Info("login overlay dismissed", "url", t.URL, "selector", dismissed)
	}

	c.logger.Debug("screenshot saved",
		"url", t.URL,
		"path", filepath.Base(t.Path),
		"status", string(status),
		"elapsed_ms", elapsed.Milliseconds())

	return Artifact{URL: t.URL, Path: t.Path, Status: status, Elapsed: elapsed}
}

// classifyRunError maps a failed browser run to an artifact status.
// Only blowing the navigation deadline counts as a timeout; everything
// else, caller cancellation included, is a plain failure.
func classifyRunError(err error) Status {
	if errors.Is(err, context.DeadlineExceeded) {
		return StatusTimeout
	}
	return StatusFailed
}

// propagateCancel cancels the capture when the caller's context dies.
func propagateCancel(ctx context.Context, cancel context.CancelFunc) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
