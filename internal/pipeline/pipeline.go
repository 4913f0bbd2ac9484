// Package pipeline orchestrates one monitor run end to end: search
// every category, dedupe the hits, screenshot the survivors, assemble
// the digest, then archive and mail it. Stage failures degrade the
// digest instead of aborting the run; only caller cancellation stops
// a run midway.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/MihirGambhire/linkedin-monitor/internal/capture"
	"github.com/MihirGambhire/linkedin-monitor/internal/config"
	"github.com/MihirGambhire/linkedin-monitor/internal/dedupe"
	"github.com/MihirGambhire/linkedin-monitor/internal/digest"
	"github.com/MihirGambhire/linkedin-monitor/internal/match"
	"github.com/MihirGambhire/linkedin-monitor/internal/metrics"
	"github.com/MihirGambhire/linkedin-monitor/internal/query"
	"github.com/MihirGambhire/linkedin-monitor/internal/run"
	"github.com/MihirGambhire/linkedin-monitor/internal/search"
	"github.com/MihirGambhire/linkedin-monitor/internal/storage"
	"github.com/MihirGambhire/linkedin-monitor/pkg/budget"
)

// Searcher runs one category query. *search.Client implements it.
type Searcher interface {
	Search(ctx context.Context, q query.Query) ([]search.Result, error)
}

// Archiver persists digest entries. storage.Backend satisfies it.
type Archiver interface {
	Save(ctx context.Context, entry *storage.Entry) error
}

// Mailer delivers the assembled digest.
type Mailer interface {
	Send(ctx context.Context, d *digest.Digest) error
}

// Config wires a Pipeline. Searcher and Categories are required; the
// other components are optional and their stage is skipped when nil.
type Config struct {
	Categories   []config.Category
	QueryOptions query.Options
	Searcher     Searcher
	// Budget, when set, feeds the remaining-allowance figure in the
	// report. The Searcher enforces it.
	Budget *budget.Counter

	// MaxPosts caps unique posts kept per run, 0 means no cap. Posts
	// over the cap are trimmed per category, largest first, and do not
	// reach the digest.
	MaxPosts int

	// Engine captures screenshots. Nil means every post is recorded as
	// skipped with SkipReason.
	Engine      capture.Engine
	SkipReason  string
	OutputDir   string
	Concurrency int

	Archive Archiver
	Mailer  Mailer
	Logger  *slog.Logger
}

// Pipeline runs the monitor. Construct with New, run once per
// invocation with Run.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger
}

// New validates the wiring.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Searcher == nil {
		return nil, errors.New("pipeline requires a searcher")
	}
	if len(cfg.Categories) == 0 {
		return nil, errors.New("pipeline requires at least one category")
	}
	if cfg.Engine != nil && cfg.OutputDir == "" {
		return nil, errors.New("pipeline requires an output directory when capture is enabled")
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.SkipReason == "" {
		cfg.SkipReason = "screenshots disabled"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{cfg: cfg, logger: cfg.Logger}, nil
}

// Run executes one monitor run and returns the assembled digest.
func (p *Pipeline) Run(ctx context.Context) (*digest.Digest, error) {
	runID := run.NewID()
	report := run.NewReport(runID)
	logger := p.logger.With("run_id", runID)

	logger.Info("run started",
		"categories", len(p.cfg.Categories),
		"time_filter", p.cfg.QueryOptions.TimeFilter)

	raw, err := p.searchAll(ctx, report, logger)
	if err != nil {
		return nil, err
	}

	posts := dedupe.Dedupe(raw)
	report.UniqueResults = len(posts)
	if dropped := len(raw) - len(posts); dropped > 0 {
		logger.Info("deduplicated results", "raw", len(raw), "unique", len(posts), "dropped", dropped)
	}

	if kept := trimToCap(posts, p.cfg.MaxPosts, p.cfg.Categories); len(kept) < len(posts) {
		logger.Info("result cap applied", "unique", len(posts), "kept", len(kept), "cap", p.cfg.MaxPosts)
		posts = kept
	}

	p.annotate(posts)

	artifacts, err := p.captureAll(ctx, posts, logger)
	if err != nil {
		return nil, err
	}
	for _, a := range artifacts {
		metrics.RecordCapture(a)
		if a.Status == capture.StatusTimeout || a.Status == capture.StatusFailed {
			report.CaptureFailures++
		}
	}

	if p.cfg.Budget != nil {
		report.BudgetRemaining = p.cfg.Budget.Remaining()
		metrics.BudgetRemaining.Set(float64(report.BudgetRemaining))
	}
	report.Finish()

	names := make([]string, len(p.cfg.Categories))
	for i, cat := range p.cfg.Categories {
		names[i] = cat.Name
	}
	d, err := digest.Assemble(runID, posts, artifacts, report, names)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble digest: %w", err)
	}

	p.archive(ctx, d, logger)

	if p.cfg.Mailer != nil {
		err := p.cfg.Mailer.Send(ctx, d)
		metrics.RecordEmail(err)
		if err != nil {
			// A failed delivery still leaves a usable digest.
			logger.Error("digest email failed", "error", err)
		}
	}

	logger.Info("run finished",
		"unique_posts", report.UniqueResults,
		"capture_failures", report.CaptureFailures,
		"duration", report.Duration)

	return d, nil
}

// searchAll runs every category query in configuration order. A budget
// exhaustion stops searching and marks the remaining categories; a
// provider failure is isolated to its category. A category that cannot
// produce a query aborts the run.
func (p *Pipeline) searchAll(ctx context.Context, report *run.Report, logger *slog.Logger) ([]search.Result, error) {
	var raw []search.Result
	exhausted := false

	for _, cat := range p.cfg.Categories {
		if exhausted {
			report.AddOutcome(cat.Name, run.StatusQuotaExhausted, "", 0)
			metrics.RecordSearch(report.Categories[len(report.Categories)-1])
			continue
		}

		q, err := query.Build(cat, p.cfg.QueryOptions)
		if err != nil {
			return nil, err
		}
		results, err := p.cfg.Searcher.Search(ctx, q)

		switch {
		case errors.Is(err, search.ErrQuotaExhausted):
			exhausted = true
			report.AddOutcome(cat.Name, run.StatusQuotaExhausted, "", 0)
			logger.Warn("search budget exhausted", "category", cat.Name)
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			report.AddOutcome(cat.Name, run.StatusAPIError, errDetail(err), 0)
			logger.Error("category search failed", "category", cat.Name, "error", err)
		case len(results) == 0:
			report.AddOutcome(cat.Name, run.StatusEmpty, "", 0)
			logger.Info("category came up empty", "category", cat.Name)
		default:
			report.AddOutcome(cat.Name, run.StatusCompleted, "", len(results))
			raw = append(raw, results...)
		}

		metrics.RecordSearch(report.Categories[len(report.Categories)-1])
	}

	return raw, nil
}

// annotate fills each post's MatchedKeywords from the keyword lists of
// every category that surfaced it.
func (p *Pipeline) annotate(posts []dedupe.Result) {
	keywords := make(map[string][]string, len(p.cfg.Categories))
	for _, cat := range p.cfg.Categories {
		keywords[cat.Name] = cat.Keywords
	}

	for i := range posts {
		seen := make(map[string]bool)
		var hits []match.KeywordHit
		for _, name := range posts[i].Categories {
			for _, h := range match.Keywords(posts[i].Title, posts[i].Snippet, keywords[name]) {
				if !seen[h.Keyword] {
					seen[h.Keyword] = true
					hits = append(hits, h)
				}
			}
		}
		posts[i].MatchedKeywords = match.Names(hits)
	}
}

// captureAll screenshots every post, or synthesizes skipped artifacts
// when no engine is wired. Artifact i belongs to post i.
func (p *Pipeline) captureAll(ctx context.Context, posts []dedupe.Result, logger *slog.Logger) ([]capture.Artifact, error) {
	if p.cfg.Engine == nil {
		artifacts := make([]capture.Artifact, len(posts))
		for i, post := range posts {
			artifacts[i] = capture.Skipped(post.URL, p.cfg.SkipReason)
		}
		return artifacts, nil
	}

	targets := make([]capture.Target, len(posts))
	for i, post := range posts {
		targets[i] = capture.Target{
			URL:  post.URL,
			Path: filepath.Join(p.cfg.OutputDir, fmt.Sprintf("post_%03d.png", i+1)),
		}
	}

	return capture.CaptureAll(ctx, p.cfg.Engine, targets, p.cfg.Concurrency, logger)
}

// archive saves every digest entry; persistence failures are logged
// and do not fail the run.
func (p *Pipeline) archive(ctx context.Context, d *digest.Digest, logger *slog.Logger) {
	if p.cfg.Archive == nil {
		return
	}

	saved := 0
	for _, section := range d.Sections {
		for _, e := range section.Entries {
			entry := &storage.Entry{
				ID:              uuid.NewString(),
				RunID:           d.RunID,
				Category:        section.Category,
				Categories:      e.Post.Categories,
				Title:           e.Post.Title,
				URL:             e.Post.URL,
				Snippet:         e.Post.Snippet,
				Rank:            e.Post.Rank,
				MatchedKeywords: e.Post.MatchedKeywords,
				CaptureStatus:   string(e.Artifact.Status),
				ScreenshotPath:  e.Artifact.Path,
				CreatedAt:       d.GeneratedAt,
			}
			if err := p.cfg.Archive.Save(ctx, entry); err != nil {
				logger.Error("failed to archive post", "url", e.Post.URL, "error", err)
				continue
			}
			saved++
		}
	}

	if saved > 0 {
		logger.Debug("archived posts", "count", saved)
	}
}

// errDetail reduces a search failure to its kind for the report.
func errDetail(err error) string {
	var se *search.Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return err.Error()
}

// trimToCap enforces the global post cap, preserving order. The trim
// is deterministic: repeatedly drop the weakest-ranked post from the
// category holding the most survivors, breaking ties toward the
// category trimmed least recently and then toward the one configured
// last.
func trimToCap(posts []dedupe.Result, limit int, categories []config.Category) []dedupe.Result {
	if limit <= 0 || len(posts) <= limit {
		return posts
	}

	keep := make([]bool, len(posts))
	for i := range keep {
		keep[i] = true
	}

	order := make(map[string]int, len(categories))
	for i, cat := range categories {
		order[cat.Name] = i
	}

	type catState struct {
		kept     []int // post indices still surviving
		lastTrim int   // step of the most recent trim, -1 for never
	}
	states := make(map[string]*catState)
	var names []string
	for i, post := range posts {
		home := post.Categories[0]
		st, ok := states[home]
		if !ok {
			st = &catState{lastTrim: -1}
			states[home] = st
			names = append(names, home)
		}
		st.kept = append(st.kept, i)
	}

	total := len(posts)
	for step := 0; total > limit; step++ {
		var victim string
		for _, name := range names {
			st := states[name]
			if len(st.kept) == 0 {
				continue
			}
			if victim == "" {
				victim = name
				continue
			}
			v := states[victim]
			switch {
			case len(st.kept) > len(v.kept):
				victim = name
			case len(st.kept) == len(v.kept) && st.lastTrim < v.lastTrim:
				victim = name
			case len(st.kept) == len(v.kept) && st.lastTrim == v.lastTrim && order[name] > order[victim]:
				victim = name
			}
		}

		st := states[victim]
		worst := 0
		for k := 1; k < len(st.kept); k++ {
			if posts[st.kept[k]].Rank >= posts[st.kept[worst]].Rank {
				worst = k
			}
		}
		keep[st.kept[worst]] = false
		st.kept = append(st.kept[:worst], st.kept[worst+1:]...)
		st.lastTrim = step
		total--
	}

	out := make([]dedupe.Result, 0, limit)
	for i, post := range posts {
		if keep[i] {
			out = append(out, post)
		}
	}
	return out
}
