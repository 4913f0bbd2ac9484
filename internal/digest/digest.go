// Package digest assembles the final output of a run: posts grouped by
// their home category, each paired with its capture artifact, plus the
// run report. The digest is what gets rendered, emailed, and archived.
package digest

import (
	"fmt"
	"time"

	"github.com/MihirGambhire/linkedin-monitor/internal/capture"
	"github.com/MihirGambhire/linkedin-monitor/internal/dedupe"
	"github.com/MihirGambhire/linkedin-monitor/internal/run"
)

// Entry pairs one unique post with the outcome of its capture.
type Entry struct {
	Post     dedupe.Result    `json:"post"`
	Artifact capture.Artifact `json:"artifact"`
}

// Section holds one category's entries in discovery order.
type Section struct {
	Category string  `json:"category"`
	Entries  []Entry `json:"entries"`
}

// Digest is the assembled result of one run. It is not mutated after
// Assemble returns.
type Digest struct {
	RunID       string      `json:"run_id"`
	GeneratedAt time.Time   `json:"generated_at"`
	Sections    []Section   `json:"sections"`
	Report      *run.Report `json:"report"`
}

// TotalPosts counts entries across all sections.
func (d *Digest) TotalPosts() int {
	n := 0
	for _, s := range d.Sections {
		n += len(s.Entries)
	}
	return n
}

// Assemble groups posts under their home category. artifacts[i]
// belongs to posts[i]. Sections follow the configured category order,
// and a category with no posts still gets an empty section so the
// rendered digest shows it came up dry rather than omitting it.
func Assemble(runID string, posts []dedupe.Result, artifacts []capture.Artifact, report *run.Report, categories []string) (*Digest, error) {
	if len(posts) != len(artifacts) {
		return nil, fmt.Errorf("got %d posts but %d artifacts", len(posts), len(artifacts))
	}

	index := make(map[string]int, len(categories))
	sections := make([]Section, len(categories))
	for i, name := range categories {
		index[name] = i
		sections[i] = Section{Category: name}
	}

	for i, post := range posts {
		if len(post.Categories) == 0 {
			return nil, fmt.Errorf("post %q has no category", post.URL)
		}
		home := post.Categories[0]
		si, ok := index[home]
		if !ok {
			return nil, fmt.Errorf("post %q has unknown category %q", post.URL, home)
		}
		sections[si].Entries = append(sections[si].Entries, Entry{
			Post:     post,
			Artifact: artifacts[i],
		})
	}

	return &Digest{
		RunID:       runID,
		GeneratedAt: time.Now().UTC(),
		Sections:    sections,
		Report:      report,
	}, nil
}
