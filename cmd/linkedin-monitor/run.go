package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MihirGambhire/linkedin-monitor/internal/capture"
	"github.com/MihirGambhire/linkedin-monitor/internal/config"
	"github.com/MihirGambhire/linkedin-monitor/internal/delivery"
	"github.com/MihirGambhire/linkedin-monitor/internal/fingerprint"
	"github.com/MihirGambhire/linkedin-monitor/internal/metrics"
	"github.com/MihirGambhire/linkedin-monitor/internal/pipeline"
	"github.com/MihirGambhire/linkedin-monitor/internal/query"
	"github.com/MihirGambhire/linkedin-monitor/internal/report"
	"github.com/MihirGambhire/linkedin-monitor/internal/search"
	"github.com/MihirGambhire/linkedin-monitor/pkg/budget"
	"github.com/MihirGambhire/linkedin-monitor/pkg/proxy"
	"github.com/MihirGambhire/linkedin-monitor/pkg/ratelimit"
	"github.com/MihirGambhire/linkedin-monitor/pkg/retry"
)

var (
	runCategories  []string
	runDryRun      bool
	runNoScreens   bool
	runMaxResults  int
	runTimeFilter  string
	runMetricsPort int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one monitor run",
	Long: `Run searches every configured category, deduplicates the results,
captures screenshots, archives the posts, and emails the digest.

Examples:
  linkedin-monitor run
  linkedin-monitor run --categories BESS,Competition
  linkedin-monitor run --dry-run                 # no capture, no email, JSON out
  linkedin-monitor run --time-filter d --max-results 5
  linkedin-monitor run --metrics-port 9090`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringSliceVar(&runCategories, "categories", nil, "restrict the run to these categories")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "search only: skip capture, archive, and email, print JSON")
	runCmd.Flags().BoolVar(&runNoScreens, "no-screenshots", false, "skip the capture stage")
	runCmd.Flags().IntVar(&runMaxResults, "max-results", 0, "override per-category result ceiling")
	runCmd.Flags().StringVar(&runTimeFilter, "time-filter", "", "override recency filter: d, w, or m")
	runCmd.Flags().IntVar(&runMetricsPort, "metrics-port", 0, "expose prometheus metrics on this port for the run")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cats, err := cfg.SelectCategories(runCategories)
	if err != nil {
		return err
	}

	opts := query.Options{
		TimeFilter: cfg.Search.TimeFilter,
		MaxResults: cfg.Search.MaxResults,
	}
	if runMaxResults > 0 {
		if runMaxResults > 100 {
			return fmt.Errorf("--max-results must be between 1 and 100 (got %d)", runMaxResults)
		}
		opts.MaxResults = runMaxResults
	}
	if runTimeFilter != "" {
		tf := strings.TrimPrefix(strings.ToLower(runTimeFilter), "qdr:")
		switch tf {
		case "d", "w", "m":
			opts.TimeFilter = tf
		default:
			return fmt.Errorf("--time-filter must be d, w, or m (got %q)", runTimeFilter)
		}
	}

	if runMetricsPort > 0 {
		srv := metrics.Start(runMetricsPort)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Stop(sctx)
		}()
	}

	counter := budget.New(cfg.Search.Budget)
	searcher, err := buildSearcher(counter)
	if err != nil {
		return err
	}

	pcfg := pipeline.Config{
		Categories:   cats,
		QueryOptions: opts,
		Searcher:     searcher,
		Budget:       counter,
		MaxPosts:     cfg.Search.MaxPerRun,
		Logger:       logger,
	}

	switch {
	case runDryRun:
		pcfg.SkipReason = "dry run"
	case runNoScreens:
		pcfg.SkipReason = "screenshots disabled"
	case !cfg.Capture.Enabled:
		pcfg.SkipReason = "capture disabled"
	default:
		engine, err := buildEngine(cfg.Capture)
		if err != nil {
			return err
		}
		defer engine.Close()
		pcfg.Engine = engine
		pcfg.OutputDir = cfg.Capture.OutputDir
		pcfg.Concurrency = cfg.Capture.Concurrency
	}

	if !runDryRun && cfg.Archive.Driver != "none" {
		backend, err := openBackend(ctx, cfg.Archive)
		if err != nil {
			return err
		}
		defer backend.Close()
		pcfg.Archive = backend
	}

	if !runDryRun && cfg.Email.Enabled {
		mailer, err := delivery.NewMailer(delivery.Config{
			Host:          cfg.Email.SMTPHost,
			Port:          cfg.Email.SMTPPort,
			Sender:        cfg.Email.Sender,
			Password:      cfg.Email.Password,
			Recipient:     cfg.Email.Recipient,
			SubjectPrefix: cfg.Email.SubjectPrefix,
		}, logger)
		if err != nil {
			return err
		}
		pcfg.Mailer = mailer
	}

	p, err := pipeline.New(pcfg)
	if err != nil {
		return err
	}
	d, err := p.Run(ctx)
	if err != nil {
		return err
	}

	if runDryRun {
		return report.WriteJSON(os.Stdout, d)
	}
	return report.WriteText(os.Stdout, d)
}

// buildSearcher assembles the provider, pacing, and retry stack around
// the shared budget counter.
func buildSearcher(counter *budget.Counter) (*search.Client, error) {
	var (
		provider search.Provider
		err      error
	)
	switch cfg.Search.Provider {
	case "serpapi":
		provider, err = search.NewSerpAPI(search.SerpAPIConfig{
			APIKey:   cfg.Search.APIKey,
			Language: cfg.Search.Language,
			Region:   cfg.Search.Region,
			Logger:   logger,
		})
	case "duckduckgo":
		provider, err = search.NewDuckDuckGo(search.DuckDuckGoConfig{
			Language: cfg.Search.Language,
			Region:   cfg.Search.Region,
			Logger:   logger,
		})
	default:
		err = fmt.Errorf("unknown search provider %q", cfg.Search.Provider)
	}
	if err != nil {
		return nil, err
	}

	var limiter *ratelimit.Limiter
	if cfg.Search.PacePerMinute > 0 {
		limiter = ratelimit.PerMinute(cfg.Search.PacePerMinute, 0.2)
	}

	return search.NewClient(search.Config{
		Provider: provider,
		Budget:   counter,
		Limiter:  limiter,
		Retry: retry.Policy{
			MaxAttempts: cfg.Search.Retry.MaxAttempts,
			BaseDelay:   cfg.Search.Retry.BaseDelay.Duration,
			MaxDelay:    cfg.Search.Retry.MaxDelay.Duration,
			Multiplier:  2.0,
			Jitter:      0.2,
		},
		Logger: logger,
	})
}

// buildEngine starts the headless browser with the optional proxy pool
// and preflight prober.
func buildEngine(cc config.CaptureConfig) (*capture.Capturer, error) {
	var pool *proxy.Pool
	if len(cc.Proxies) > 0 || cc.ProxyFile != "" {
		pool = proxy.NewPool(proxy.Config{})
		if err := pool.Add(cc.Proxies...); err != nil {
			return nil, fmt.Errorf("failed to load proxies: %w", err)
		}
		if cc.ProxyFile != "" {
			if err := pool.LoadFile(cc.ProxyFile); err != nil {
				return nil, fmt.Errorf("failed to load proxy file: %w", err)
			}
		}
	}

	var prober *capture.Prober
	if cc.Probe.Enabled {
		var err error
		prober, err = capture.NewProber(capture.ProberConfig{
			Fingerprint: fingerprint.Profile(cc.Probe.Fingerprint),
			Proxies:     pool,
			Logger:      logger,
		})
		if err != nil {
			return nil, err
		}
	}

	return capture.New(capture.Config{
		OutputDir:      cc.OutputDir,
		ViewportWidth:  cc.ViewportWidth,
		ViewportHeight: cc.ViewportHeight,
		NavTimeout:     cc.NavTimeout.Duration,
		SettleDelay:    cc.SettleDelay.Duration,
		Proxies:        pool,
		Prober:         prober,
		Logger:         logger,
	})
}
