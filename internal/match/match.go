// Package match reports which of a category's keyword phrases actually
// occur in a result's visible text. Search engines match loosely, so
// the digest and the archive record the phrases that literally appear
// in the title or snippet rather than trusting the query.
package match

import "strings"

// KeywordHit is one keyword phrase found in a post's search listing.
type KeywordHit struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// Keywords scans title and snippet for each keyword, case-insensitively,
// and returns the phrases that occur at least once, in keyword order.
func Keywords(title, snippet string, keywords []string) []KeywordHit {
	if len(keywords) == 0 {
		return nil
	}

	// Lowercase the content once, not per keyword.
	content := strings.ToLower(title + "\n" + snippet)

	var hits []KeywordHit
	for _, kw := range keywords {
		lower := strings.ToLower(strings.TrimSpace(kw))
		if lower == "" {
			continue
		}
		count := strings.Count(content, lower)
		if count == 0 {
			continue
		}
		hits = append(hits, KeywordHit{Keyword: kw, Count: count})
	}
	return hits
}

// Names returns just the matched phrases, for flat storage columns.
func Names(hits []KeywordHit) []string {
	if len(hits) == 0 {
		return nil
	}
	names := make([]string, len(hits))
	for i, h := range hits {
		names[i] = h.Keyword
	}
	return names
}
