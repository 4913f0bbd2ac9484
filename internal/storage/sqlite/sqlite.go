package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/MihirGambhire/linkedin-monitor/internal/storage"
	_ "modernc.org/sqlite"
)

var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS posts (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	category TEXT NOT NULL,
	categories TEXT NOT NULL,
	title TEXT NOT NULL,
	url TEXT NOT NULL,
	snippet TEXT,
	search_rank INTEGER NOT NULL,
	matched_keywords TEXT,
	capture_status TEXT NOT NULL,
	screenshot_path TEXT,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS posts_run_id ON posts (run_id);
CREATE INDEX IF NOT EXISTS posts_category ON posts (category);
`

// New creates a new SQLite-backed storage.Backend.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply sqlite schema: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, entry *storage.Entry) error {
	categoriesJSON, err := json.Marshal(entry.Categories)
	if err != nil {
		return fmt.Errorf("failed to encode categories: %w", err)
	}
	keywordsJSON, err := json.Marshal(entry.MatchedKeywords)
	if err != nil {
		return fmt.Errorf("failed to encode matched keywords: %w", err)
	}

	query := `
	INSERT INTO posts (
		id, run_id, category, categories, title, url, snippet, search_rank, matched_keywords, capture_status, screenshot_path, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = b.db.ExecContext(ctx, query,
		entry.ID,
		entry.RunID,
		entry.Category,
		string(categoriesJSON),
		entry.Title,
		entry.URL,
		entry.Snippet,
		entry.Rank,
		string(keywordsJSON),
		entry.CaptureStatus,
		entry.ScreenshotPath,
		entry.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}

	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Entry, error) {
	query := `SELECT id, run_id, category, categories, title, url, snippet, search_rank, matched_keywords, capture_status, screenshot_path, created_at FROM posts WHERE 1=1`
	args := []any{}

	if filter.RunID != "" {
		query += ` AND run_id = ?`
		args = append(args, filter.RunID)
	}
	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, *filter.Since)
	}

	query += ` ORDER BY created_at DESC, search_rank ASC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	var entries []*storage.Entry
	for rows.Next() {
		var e storage.Entry
		var categoriesJSON, keywordsJSON string

		err := rows.Scan(
			&e.ID, &e.RunID, &e.Category, &categoriesJSON, &e.Title, &e.URL, &e.Snippet,
			&e.Rank, &keywordsJSON, &e.CaptureStatus, &e.ScreenshotPath, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}

		if err := json.Unmarshal([]byte(categoriesJSON), &e.Categories); err != nil {
			return nil, fmt.Errorf("failed to decode categories: %w", err)
		}
		if err := json.Unmarshal([]byte(keywordsJSON), &e.MatchedKeywords); err != nil {
			return nil, fmt.Errorf("failed to decode matched keywords: %w", err)
		}

		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read post rows: %w", err)
	}

	return entries, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
