package dedupe

import (
	"testing"

	"github.com/MihirGambhire/linkedin-monitor/internal/search"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			"linkedin query stripped",
			"https://www.linkedin.com/posts/acme_activity-123?utm_source=share&trk=public_post",
			"https://linkedin.com/posts/acme_activity-123",
		},
		{
			"fragment dropped",
			"https://linkedin.com/feed/update/urn:li:activity:9#comments",
			"https://linkedin.com/feed/update/urn:li:activity:9",
		},
		{
			"trailing slash trimmed",
			"https://linkedin.com/posts/acme_x/",
			"https://linkedin.com/posts/acme_x",
		},
		{
			"host and scheme lowercased",
			"HTTPS://WWW.LinkedIn.COM/posts/Acme_X",
			"https://linkedin.com/posts/Acme_X",
		},
		{
			"default port dropped",
			"https://linkedin.com:443/posts/x",
			"https://linkedin.com/posts/x",
		},
		{
			"non-linkedin keeps real params, drops trackers",
			"https://example.com/a?utm_campaign=x&id=7&trk=share",
			"https://example.com/a?id=7",
		},
		{
			"non-linkedin params sorted",
			"https://example.com/a?b=2&a=1",
			"https://example.com/a?a=1&b=2",
		},
		{
			"unparseable passes through",
			"not a url",
			"not a url",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.in); got != tc.want {
				t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestDedupe_FirstCategoryWins(t *testing.T) {
	// The same post found by two categories with different tracking
	// noise: the first keeps it, the second is recorded on it.
	results := []search.Result{
		{Title: "Cycler launch", URL: "https://www.linkedin.com/posts/acme_x?trk=a", Category: "Cell/Battery Tester", Rank: 0},
		{Title: "Other post", URL: "https://www.linkedin.com/posts/other_y", Category: "Cell/Battery Tester", Rank: 1},
		{Title: "Cycler launch again", URL: "https://linkedin.com/posts/acme_x?utm_source=share", Category: "BESS", Rank: 0},
	}

	deduped := Dedupe(results)

	if len(deduped) != 2 {
		t.Fatalf("expected 2 unique posts, got %d", len(deduped))
	}

	first := deduped[0]
	if first.Category != "Cell/Battery Tester" {
		t.Errorf("expected home category of first finder, got %q", first.Category)
	}
	if first.Title != "Cycler launch" {
		t.Errorf("expected first occurrence's fields kept, got title %q", first.Title)
	}
	if len(first.Categories) != 2 || first.Categories[0] != "Cell/Battery Tester" || first.Categories[1] != "BESS" {
		t.Errorf("expected both categories recorded home-first, got %v", first.Categories)
	}
	if first.NormalizedURL != "https://linkedin.com/posts/acme_x" {
		t.Errorf("unexpected normalized url: %q", first.NormalizedURL)
	}
}

func TestDedupe_SameCategoryDuplicate(t *testing.T) {
	results := []search.Result{
		{URL: "https://linkedin.com/posts/x", Category: "A", Rank: 0},
		{URL: "https://linkedin.com/posts/x/", Category: "A", Rank: 5},
	}

	deduped := Dedupe(results)
	if len(deduped) != 1 {
		t.Fatalf("expected 1 unique post, got %d", len(deduped))
	}
	if len(deduped[0].Categories) != 1 {
		t.Errorf("a category must appear once even when it found the post twice, got %v", deduped[0].Categories)
	}
	if deduped[0].Rank != 0 {
		t.Errorf("expected first occurrence's rank kept, got %d", deduped[0].Rank)
	}
}

func TestDedupe_PreservesEncounterOrder(t *testing.T) {
	results := []search.Result{
		{URL: "https://linkedin.com/posts/c", Category: "A", Rank: 0},
		{URL: "https://linkedin.com/posts/a", Category: "A", Rank: 1},
		{URL: "https://linkedin.com/posts/b", Category: "B", Rank: 0},
	}

	deduped := Dedupe(results)
	want := []string{"https://linkedin.com/posts/c", "https://linkedin.com/posts/a", "https://linkedin.com/posts/b"}
	for i, w := range want {
		if deduped[i].NormalizedURL != w {
			t.Errorf("position %d: expected %s, got %s", i, w, deduped[i].NormalizedURL)
		}
	}
}

func TestDedupe_Empty(t *testing.T) {
	if got := Dedupe(nil); len(got) != 0 {
		t.Errorf("expected empty output, got %d", len(got))
	}
}
