package storage

import (
	"context"
	"time"
)

// Entry is one archived post from a monitor run. A post that matched
// several categories is stored once, under its home category, with the
// full category list alongside.
type Entry struct {
	ID              string    `json:"id"`
	RunID           string    `json:"run_id"`
	Category        string    `json:"category"`
	Categories      []string  `json:"categories"`
	Title           string    `json:"title"`
	URL             string    `json:"url"`
	Snippet         string    `json:"snippet,omitempty"`
	Rank            int       `json:"rank"`
	MatchedKeywords []string  `json:"matched_keywords,omitempty"`
	CaptureStatus   string    `json:"capture_status"`
	ScreenshotPath  string    `json:"screenshot_path,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Filter narrows a Query.
type Filter struct {
	RunID    string
	Category string
	Since    *time.Time
	Limit    int
	Offset   int
}

// Backend defines the interface for archiving and querying posts.
type Backend interface {
	Save(ctx context.Context, entry *Entry) error
	Query(ctx context.Context, filter Filter) ([]*Entry, error)
	Close() error
}
