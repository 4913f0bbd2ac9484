// Package query turns a keyword category into a single provider-ready
// search string. One category is always one query: keywords are OR'd
// together so a run's search spend scales with categories, not with
// keywords.
package query

import (
	"fmt"
	"strings"

	"github.com/MihirGambhire/linkedin-monitor/internal/config"
)

// SiteFilter restricts results to public LinkedIn post permalinks.
// Both URL shapes occur in the wild, old-style /posts and activity
// /feed/update, so the filter carries both.
const SiteFilter = "(site:linkedin.com/posts OR site:linkedin.com/feed/update)"

// Query is one search request for one category.
type Query struct {
	// Category is the configured category name the results will be
	// grouped under.
	Category string
	// Text is the full query string including the site filter.
	Text string
	// TimeFilter is the recency token: "d", "w", or "m".
	TimeFilter string
	// MaxResults is the per-query result ceiling.
	MaxResults int
}

// Options carries the run-level knobs applied to every query.
type Options struct {
	TimeFilter string
	MaxResults int
}

// Build assembles the query for one category. Each keyword is quoted
// as an exact phrase and the phrases are OR'd:
//
//	("Battery Tester" OR "Battery Cycler") (site:linkedin.com/posts OR site:linkedin.com/feed/update)
//
// A category with no usable keywords is a configuration error.
func Build(cat config.Category, opts Options) (Query, error) {
	quoted := make([]string, 0, len(cat.Keywords))
	for _, kw := range cat.Keywords {
		kw = strings.TrimSpace(strings.ReplaceAll(kw, `"`, ""))
		if kw == "" {
			continue
		}
		quoted = append(quoted, `"`+kw+`"`)
	}
	if len(quoted) == 0 {
		return Query{}, &config.Error{
			Field: "categories",
			Msg:   fmt.Sprintf("category %q has no usable keywords", cat.Name),
		}
	}

	text := "(" + strings.Join(quoted, " OR ") + ") " + SiteFilter

	return Query{
		Category:   cat.Name,
		Text:       text,
		TimeFilter: opts.TimeFilter,
		MaxResults: opts.MaxResults,
	}, nil
}

// BuildAll assembles queries for every category, preserving order.
func BuildAll(cats []config.Category, opts Options) ([]Query, error) {
	out := make([]Query, 0, len(cats))
	for _, cat := range cats {
		q, err := Build(cat, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}
