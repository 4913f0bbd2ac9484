// Package dedupe collapses search results that point at the same
// LinkedIn post. Categories share keywords, so the same post routinely
// surfaces in several category searches; the first category to find it
// keeps it and later categories are recorded as also-matched.
package dedupe

import (
	"net/url"
	"strings"

	"github.com/MihirGambhire/linkedin-monitor/internal/search"
)

// Result is a unique post. The embedded search.Result carries the
// fields of the first occurrence, including its home category; the
// Categories list names every category that surfaced the post, home
// category first, in encounter order.
type Result struct {
	search.Result

	// NormalizedURL is the canonical identity the post was deduped on.
	NormalizedURL string   `json:"normalized_url"`
	Categories    []string `json:"categories"`

	// MatchedKeywords lists the configured phrases that actually occur
	// in the title or snippet, filled in after dedupe.
	MatchedKeywords []string `json:"matched_keywords,omitempty"`
}

// Dedupe collapses results by normalized URL, preserving the order of
// first occurrences. The input is expected in category-major order, so
// a post's home category is the first configured category that found
// it.
func Dedupe(results []search.Result) []Result {
	index := make(map[string]int, len(results))
	out := make([]Result, 0, len(results))

	for _, r := range results {
		key := Normalize(r.URL)

		if i, seen := index[key]; seen {
			if !hasCategory(out[i].Categories, r.Category) {
				out[i].Categories = append(out[i].Categories, r.Category)
			}
			continue
		}

		index[key] = len(out)
		out = append(out, Result{
			Result:        r,
			NormalizedURL: key,
			Categories:    []string{r.Category},
		})
	}

	return out
}

// Trackers that LinkedIn and sharers append to post URLs. Two links
// differing only in these are the same post.
var trackingParams = map[string]bool{
	"trk":              true,
	"trkinfo":          true,
	"li_fat_id":        true,
	"licu":             true,
	"lipi":             true,
	"rcm":              true,
	"mc":               true,
	"original_referer": true,
	"refid":            true,
	"trackingid":       true,
}

// Normalize reduces a URL to its canonical identity: lowercase scheme
// and host, no www prefix, no default port, no fragment, no trailing
// slash, tracking parameters dropped. LinkedIn URLs lose their query
// string entirely; the permalink path alone identifies a post.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")
	switch u.Scheme {
	case "http":
		host = strings.TrimSuffix(host, ":80")
	case "https":
		host = strings.TrimSuffix(host, ":443")
	}
	u.Host = host

	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")

	if strings.Contains(host, "linkedin.com") {
		u.RawQuery = ""
	} else if u.RawQuery != "" {
		u.RawQuery = filterQuery(u.Query())
	}

	return u.String()
}

// filterQuery drops tracking parameters. Encode emits the survivors in
// sorted key order, so equivalent URLs compare equal.
func filterQuery(q url.Values) string {
	kept := url.Values{}
	for k, vs := range q {
		lk := strings.ToLower(k)
		if trackingParams[lk] || strings.HasPrefix(lk, "utm_") {
			continue
		}
		kept[k] = vs
	}
	return kept.Encode()
}

func hasCategory(list []string, name string) bool {
	for _, c := range list {
		if c == name {
			return true
		}
	}
	return false
}
