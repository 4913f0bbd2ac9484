package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/MihirGambhire/linkedin-monitor/internal/capture"
	"github.com/MihirGambhire/linkedin-monitor/internal/dedupe"
	"github.com/MihirGambhire/linkedin-monitor/internal/digest"
	"github.com/MihirGambhire/linkedin-monitor/internal/run"
	"github.com/MihirGambhire/linkedin-monitor/internal/search"
)

func sampleDigest(t *testing.T) *digest.Digest {
	t.Helper()

	rep := run.NewReport("run-42")
	rep.AddOutcome("BESS", run.StatusCompleted, "", 3)
	rep.AddOutcome("Competition", run.StatusAPIError, "rate_limited", 0)
	rep.UniqueResults = 2
	rep.BudgetRemaining = 15
	rep.Finish()

	posts := []dedupe.Result{
		{
			Result:     search.Result{Title: "Grid-scale BESS goes live", URL: "https://www.linkedin.com/posts/a"},
			Categories: []string{"BESS"},
		},
		{
			Result:     search.Result{Title: "Containerized storage teardown", URL: "https://www.linkedin.com/posts/b"},
			Categories: []string{"BESS"},
		},
	}
	artifacts := []capture.Artifact{
		{URL: posts[0].URL, Status: capture.StatusOK, Path: "screenshots/post_001.png"},
		{URL: posts[1].URL, Status: capture.StatusTimeout},
	}

	d, err := digest.Assemble("run-42", posts, artifacts, rep, []string{"BESS", "Competition"})
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	return d
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleDigest(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, `"run_id": "run-42"`) {
		t.Errorf("expected JSON to contain the run id")
	}
	if !strings.Contains(out, `"status": "timeout"`) {
		t.Errorf("expected JSON to contain the capture status")
	}
	if !strings.Contains(out, `"rate_limited"`) {
		t.Errorf("expected JSON to carry the api_error detail")
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, sampleDigest(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "run run-42") {
		t.Errorf("expected text to contain the run id, got:\n%s", out)
	}
	if !strings.Contains(out, "BESS: completed, 3 results") {
		t.Errorf("expected the BESS outcome line, got:\n%s", out)
	}
	if !strings.Contains(out, "Competition: api_error (rate_limited), 0 results") {
		t.Errorf("expected the Competition outcome line, got:\n%s", out)
	}
	if !strings.Contains(out, "2 unique of 3 raw") {
		t.Errorf("expected the posts line, got:\n%s", out)
	}
	if !strings.Contains(out, "Captures:      1 ok, 1 timeout") {
		t.Errorf("expected the capture summary, got:\n%s", out)
	}
	if !strings.Contains(out, "[ok] Grid-scale BESS goes live") {
		t.Errorf("expected the post listing, got:\n%s", out)
	}
	if !strings.Contains(out, "Budget left:   15 searches") {
		t.Errorf("expected the budget line, got:\n%s", out)
	}
}

func TestWriteText_EmptyDigest(t *testing.T) {
	rep := run.NewReport("run-0")
	rep.Finish()
	d, err := digest.Assemble("run-0", nil, nil, rep, []string{"BESS"})
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteText(&buf, d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "Captures:      none") {
		t.Errorf("expected empty capture summary, got:\n%s", buf.String())
	}
}
