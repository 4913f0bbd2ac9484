package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/MihirGambhire/linkedin-monitor/internal/capture"
	"github.com/MihirGambhire/linkedin-monitor/internal/config"
	"github.com/MihirGambhire/linkedin-monitor/internal/dedupe"
	"github.com/MihirGambhire/linkedin-monitor/internal/digest"
	"github.com/MihirGambhire/linkedin-monitor/internal/query"
	"github.com/MihirGambhire/linkedin-monitor/internal/run"
	"github.com/MihirGambhire/linkedin-monitor/internal/search"
	"github.com/MihirGambhire/linkedin-monitor/internal/storage"
)

// fakeSearcher serves canned results keyed by category.
type fakeSearcher struct {
	results map[string][]search.Result
	errs    map[string]error
	calls   []string
}

func (f *fakeSearcher) Search(ctx context.Context, q query.Query) ([]search.Result, error) {
	f.calls = append(f.calls, q.Category)
	if err := f.errs[q.Category]; err != nil {
		return nil, err
	}
	return f.results[q.Category], nil
}

// fakeEngine returns an ok artifact for every target without touching
// a browser. CaptureAll calls it concurrently.
type fakeEngine struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeEngine) Capture(_ context.Context, target capture.Target) capture.Artifact {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return capture.Artifact{URL: target.URL, Path: target.Path, Status: capture.StatusOK}
}

type fakeArchive struct {
	entries []*storage.Entry
	err     error
}

func (f *fakeArchive) Save(_ context.Context, e *storage.Entry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, e)
	return nil
}

type fakeMailer struct {
	sent []*digest.Digest
	err  error
}

func (f *fakeMailer) Send(_ context.Context, d *digest.Digest) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, d)
	return nil
}

func result(category, url, title string, rank int) search.Result {
	return search.Result{Category: category, URL: url, Title: title, Rank: rank}
}

func TestNew_Validation(t *testing.T) {
	cats := []config.Category{{Name: "BESS", Keywords: []string{"BESS"}}}

	if _, err := New(Config{Categories: cats}); err == nil {
		t.Error("expected error for missing searcher")
	}
	if _, err := New(Config{Searcher: &fakeSearcher{}}); err == nil {
		t.Error("expected error for missing categories")
	}
	if _, err := New(Config{Searcher: &fakeSearcher{}, Categories: cats, Engine: &fakeEngine{}}); err == nil {
		t.Error("expected error for capture engine without output directory")
	}
	if _, err := New(Config{Searcher: &fakeSearcher{}, Categories: cats}); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}

func TestRun_FullFlow(t *testing.T) {
	cats := []config.Category{
		{Name: "BESS", Keywords: []string{"battery storage", "BESS"}},
		{Name: "Competition", Keywords: []string{"Digatron"}},
	}
	searcher := &fakeSearcher{results: map[string][]search.Result{
		"BESS": {
			result("BESS", "https://www.linkedin.com/posts/a", "Battery storage ribbon cutting", 0),
			result("BESS", "https://www.linkedin.com/posts/b", "Digatron commissions BESS unit", 1),
		},
		"Competition": {
			result("Competition", "https://www.linkedin.com/posts/b", "Digatron commissions BESS unit", 0),
			result("Competition", "https://www.linkedin.com/posts/c", "Digatron opens new lab", 1),
		},
	}}
	engine := &fakeEngine{}
	archive := &fakeArchive{}
	mailer := &fakeMailer{}

	p, err := New(Config{
		Categories: cats,
		Searcher:   searcher,
		Engine:     engine,
		OutputDir:  t.TempDir(),
		Archive:    archive,
		Mailer:     mailer,
	})
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}

	d, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if d.Report.TotalResults != 4 {
		t.Errorf("expected 4 raw results, got %d", d.Report.TotalResults)
	}
	if d.Report.UniqueResults != 3 {
		t.Errorf("expected 3 unique results, got %d", d.Report.UniqueResults)
	}
	for _, name := range []string{"BESS", "Competition"} {
		out := d.Report.Outcome(name)
		if out == nil || out.Status != run.StatusCompleted {
			t.Errorf("expected %s completed, got %+v", name, out)
		}
	}

	if len(d.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(d.Sections))
	}
	if got := len(d.Sections[0].Entries); got != 2 {
		t.Errorf("expected 2 BESS entries, got %d", got)
	}
	if got := len(d.Sections[1].Entries); got != 1 {
		t.Errorf("expected 1 Competition entry, got %d", got)
	}

	// The cross-listed post keeps its first category as home and
	// records both.
	crossed := d.Sections[0].Entries[1].Post
	if len(crossed.Categories) != 2 || crossed.Categories[1] != "Competition" {
		t.Errorf("expected post b listed under both categories, got %v", crossed.Categories)
	}
	if got := crossed.MatchedKeywords; len(got) != 2 || got[0] != "BESS" || got[1] != "Digatron" {
		t.Errorf("expected matched keywords [BESS Digatron], got %v", got)
	}
	if got := d.Sections[0].Entries[0].Post.MatchedKeywords; len(got) != 1 || got[0] != "battery storage" {
		t.Errorf("expected matched keywords [battery storage], got %v", got)
	}

	// Screenshots are numbered across the whole run in digest order.
	wantPaths := []string{"post_001.png", "post_002.png", "post_003.png"}
	var gotPaths []string
	for _, s := range d.Sections {
		for _, e := range s.Entries {
			if e.Artifact.Status != capture.StatusOK {
				t.Errorf("expected ok capture for %s, got %s", e.Post.URL, e.Artifact.Status)
			}
			gotPaths = append(gotPaths, e.Artifact.Path)
		}
	}
	for i, want := range wantPaths {
		if !strings.HasSuffix(gotPaths[i], want) {
			t.Errorf("screenshot %d: expected suffix %s, got %s", i, want, gotPaths[i])
		}
	}
	if engine.calls != 3 {
		t.Errorf("expected 3 captures, got %d", engine.calls)
	}

	if len(archive.entries) != 3 {
		t.Errorf("expected 3 archived posts, got %d", len(archive.entries))
	}
	for _, e := range archive.entries {
		if e.RunID != d.RunID {
			t.Errorf("archived entry carries run %s, digest is %s", e.RunID, d.RunID)
		}
		if e.CaptureStatus != string(capture.StatusOK) {
			t.Errorf("expected archived status ok, got %s", e.CaptureStatus)
		}
	}

	if len(mailer.sent) != 1 {
		t.Fatalf("expected 1 digest email, got %d", len(mailer.sent))
	}
	if mailer.sent[0].TotalPosts() != 3 {
		t.Errorf("expected mailed digest with 3 posts, got %d", mailer.sent[0].TotalPosts())
	}
}

func TestRun_QuotaExhaustedSkipsRemaining(t *testing.T) {
	cats := []config.Category{
		{Name: "A", Keywords: []string{"a"}},
		{Name: "B", Keywords: []string{"b"}},
		{Name: "C", Keywords: []string{"c"}},
	}
	searcher := &fakeSearcher{
		results: map[string][]search.Result{
			"A": {result("A", "https://www.linkedin.com/posts/a", "a post", 0)},
		},
		errs: map[string]error{"B": search.ErrQuotaExhausted},
	}
	mailer := &fakeMailer{}

	p, err := New(Config{Categories: cats, Searcher: searcher, Mailer: mailer})
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}
	d, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	// C must not be searched once the budget is gone.
	if len(searcher.calls) != 2 {
		t.Errorf("expected 2 search calls, got %v", searcher.calls)
	}
	for _, tc := range []struct {
		name string
		want run.Status
	}{
		{"A", run.StatusCompleted},
		{"B", run.StatusQuotaExhausted},
		{"C", run.StatusQuotaExhausted},
	} {
		out := d.Report.Outcome(tc.name)
		if out == nil || out.Status != tc.want {
			t.Errorf("category %s: expected %s, got %+v", tc.name, tc.want, out)
		}
	}

	// The partial run still goes out.
	if len(mailer.sent) != 1 {
		t.Errorf("expected digest email despite exhaustion, got %d", len(mailer.sent))
	}
	if d.TotalPosts() != 1 {
		t.Errorf("expected 1 post from the completed category, got %d", d.TotalPosts())
	}
}

func TestRun_APIErrorIsolatedToCategory(t *testing.T) {
	cats := []config.Category{
		{Name: "A", Keywords: []string{"a"}},
		{Name: "B", Keywords: []string{"b"}},
	}
	searcher := &fakeSearcher{
		results: map[string][]search.Result{
			"B": {result("B", "https://www.linkedin.com/posts/b", "b post", 0)},
		},
		errs: map[string]error{"A": &search.Error{
			Provider: "serpapi", Category: "A", Kind: search.KindRateLimited, Err: errors.New("429"),
		}},
	}

	p, err := New(Config{Categories: cats, Searcher: searcher})
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}
	d, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	out := d.Report.Outcome("A")
	if out == nil || out.Status != run.StatusAPIError {
		t.Fatalf("expected A api_error, got %+v", out)
	}
	if out.Detail != search.KindRateLimited {
		t.Errorf("expected detail %q, got %q", search.KindRateLimited, out.Detail)
	}
	if out := d.Report.Outcome("B"); out == nil || out.Status != run.StatusCompleted {
		t.Errorf("expected B to complete after A failed, got %+v", out)
	}
}

func TestRun_CancelledContextAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	searcher := &fakeSearcher{errs: map[string]error{"A": ctx.Err()}}
	p, err := New(Config{
		Categories: []config.Category{{Name: "A", Keywords: []string{"a"}}},
		Searcher:   searcher,
	})
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}

	if _, err := p.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRun_NoEngineSkipsAllCaptures(t *testing.T) {
	cats := []config.Category{{Name: "A", Keywords: []string{"a"}}}
	searcher := &fakeSearcher{results: map[string][]search.Result{
		"A": {
			result("A", "https://www.linkedin.com/posts/a", "a post", 0),
			result("A", "https://www.linkedin.com/posts/b", "b post", 1),
		},
	}}
	archive := &fakeArchive{}

	p, err := New(Config{Categories: cats, Searcher: searcher, Archive: archive, SkipReason: "dry run"})
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}
	d, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	for _, e := range d.Sections[0].Entries {
		if e.Artifact.Status != capture.StatusSkipped {
			t.Errorf("expected skipped artifact, got %s", e.Artifact.Status)
		}
		if e.Artifact.Reason != "dry run" {
			t.Errorf("expected skip reason %q, got %q", "dry run", e.Artifact.Reason)
		}
	}
	for _, e := range archive.entries {
		if e.ScreenshotPath != "" {
			t.Errorf("expected empty screenshot path, got %s", e.ScreenshotPath)
		}
	}
}

func TestRun_ResultCapTrimsProportionally(t *testing.T) {
	cats := []config.Category{
		{Name: "A", Keywords: []string{"a"}},
		{Name: "B", Keywords: []string{"b"}},
	}
	searcher := &fakeSearcher{results: map[string][]search.Result{
		"A": {
			result("A", "https://www.linkedin.com/posts/a0", "a0", 0),
			result("A", "https://www.linkedin.com/posts/a1", "a1", 1),
		},
		"B": {
			result("B", "https://www.linkedin.com/posts/b0", "b0", 0),
			result("B", "https://www.linkedin.com/posts/b1", "b1", 1),
			result("B", "https://www.linkedin.com/posts/b2", "b2", 2),
			result("B", "https://www.linkedin.com/posts/b3", "b3", 3),
		},
	}}
	engine := &fakeEngine{}

	p, err := New(Config{
		Categories: cats,
		Searcher:   searcher,
		MaxPosts:   3,
		Engine:     engine,
		OutputDir:  t.TempDir(),
	})
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}
	d, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	// Six posts over a cap of three ends up A:1, B:2, best ranks kept;
	// the rest never reach the digest.
	if d.TotalPosts() != 3 {
		t.Fatalf("expected 3 posts in digest, got %d", d.TotalPosts())
	}
	if engine.calls != 3 {
		t.Errorf("expected 3 captures, got %d", engine.calls)
	}

	var titles []string
	for _, s := range d.Sections {
		for _, e := range s.Entries {
			titles = append(titles, e.Post.Title)
			if e.Artifact.Status != capture.StatusOK {
				t.Errorf("expected %s captured, got %s", e.Post.Title, e.Artifact.Status)
			}
		}
	}
	want := []string{"a0", "b0", "b1"}
	if !slices.Equal(titles, want) {
		t.Errorf("expected surviving posts %v, got %v", want, titles)
	}

	// The report still accounts for everything the searches returned.
	if d.Report.TotalResults != 6 {
		t.Errorf("expected 6 raw results in report, got %d", d.Report.TotalResults)
	}
	if d.Report.UniqueResults != 6 {
		t.Errorf("expected 6 unique results in report, got %d", d.Report.UniqueResults)
	}
}

func TestTrimToCap(t *testing.T) {
	cats := []config.Category{{Name: "A"}, {Name: "B"}}
	post := func(home string, rank int) dedupe.Result {
		return dedupe.Result{
			Result:     search.Result{Rank: rank, URL: fmt.Sprintf("https://x/%s%d", home, rank)},
			Categories: []string{home},
		}
	}
	posts := []dedupe.Result{
		post("A", 0), post("A", 1),
		post("B", 0), post("B", 1), post("B", 2), post("B", 3),
	}

	kept := trimToCap(posts, 3, cats)
	var got []string
	for _, p := range kept {
		got = append(got, p.URL)
	}
	want := []string{"https://x/A0", "https://x/B0", "https://x/B1"}
	if !slices.Equal(got, want) {
		t.Errorf("expected %v kept, got %v", want, got)
	}

	// No cap or room for everything keeps the full set.
	for _, limit := range []int{0, 6, 10} {
		if kept := trimToCap(posts, limit, cats); len(kept) != len(posts) {
			t.Errorf("limit %d: expected all %d posts kept, got %d", limit, len(posts), len(kept))
		}
	}

	// Equal-sized categories trim round-robin, later config order first,
	// so a three-way tie under cap 3 leaves one post in each.
	tied := []dedupe.Result{
		post("A", 0), post("A", 1),
		post("B", 0), post("B", 1),
		post("C", 0), post("C", 1),
	}
	threeCats := []config.Category{{Name: "A"}, {Name: "B"}, {Name: "C"}}
	got = got[:0]
	for _, p := range trimToCap(tied, 3, threeCats) {
		got = append(got, p.URL)
	}
	want = []string{"https://x/A0", "https://x/B0", "https://x/C0"}
	if !slices.Equal(got, want) {
		t.Errorf("expected %v kept from three-way tie, got %v", want, got)
	}
}

func TestRun_MailerFailureKeepsDigest(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]search.Result{
		"A": {result("A", "https://www.linkedin.com/posts/a", "a post", 0)},
	}}
	mailer := &fakeMailer{err: errors.New("smtp unreachable")}

	p, err := New(Config{
		Categories: []config.Category{{Name: "A", Keywords: []string{"a"}}},
		Searcher:   searcher,
		Mailer:     mailer,
	})
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}
	d, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("expected run to survive mailer failure, got %v", err)
	}
	if d.TotalPosts() != 1 {
		t.Errorf("expected digest intact, got %d posts", d.TotalPosts())
	}
}

func TestRun_ArchiveFailureKeepsRun(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]search.Result{
		"A": {result("A", "https://www.linkedin.com/posts/a", "a post", 0)},
	}}
	archive := &fakeArchive{err: errors.New("disk full")}
	mailer := &fakeMailer{}

	p, err := New(Config{
		Categories: []config.Category{{Name: "A", Keywords: []string{"a"}}},
		Searcher:   searcher,
		Archive:    archive,
		Mailer:     mailer,
	})
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("expected run to survive archive failure, got %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Errorf("expected email despite archive failure, got %d", len(mailer.sent))
	}
}

func TestRun_AllEmptyStillMails(t *testing.T) {
	cats := []config.Category{
		{Name: "A", Keywords: []string{"a"}},
		{Name: "B", Keywords: []string{"b"}},
	}
	searcher := &fakeSearcher{}
	mailer := &fakeMailer{}

	p, err := New(Config{Categories: cats, Searcher: searcher, Mailer: mailer})
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}
	d, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	for _, name := range []string{"A", "B"} {
		if out := d.Report.Outcome(name); out == nil || out.Status != run.StatusEmpty {
			t.Errorf("expected %s empty, got %+v", name, out)
		}
	}
	if d.TotalPosts() != 0 {
		t.Errorf("expected no posts, got %d", d.TotalPosts())
	}
	if len(d.Sections) != 2 {
		t.Errorf("expected both sections present when empty, got %d", len(d.Sections))
	}
	if len(mailer.sent) != 1 {
		t.Errorf("expected zero-post digest email, got %d", len(mailer.sent))
	}
}
