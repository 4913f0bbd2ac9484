package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MihirGambhire/linkedin-monitor/internal/storage"
)

var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS posts (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	category TEXT NOT NULL,
	categories JSONB NOT NULL,
	title TEXT NOT NULL,
	url TEXT NOT NULL,
	snippet TEXT,
	search_rank INTEGER NOT NULL,
	matched_keywords JSONB,
	capture_status TEXT NOT NULL,
	screenshot_path TEXT,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS posts_run_id ON posts (run_id);
CREATE INDEX IF NOT EXISTS posts_category ON posts (category);
`

// New creates a new Postgres-backed storage.Backend.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply postgres schema: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, entry *storage.Entry) error {
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
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = b.pool.Exec(ctx, query,
		entry.ID,
		entry.RunID,
		entry.Category,
		categoriesJSON,
		entry.Title,
		entry.URL,
		entry.Snippet,
		entry.Rank,
		keywordsJSON,
		entry.CaptureStatus,
		entry.ScreenshotPath,
		entry.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}

	return nil
}

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Entry, error) {
	query := `SELECT id, run_id, category, categories, title, url, snippet, search_rank, matched_keywords, capture_status, screenshot_path, created_at FROM posts WHERE 1=1`
	args := []any{}
	paramCount := 1

	if filter.RunID != "" {
		query += fmt.Sprintf(` AND run_id = $%d`, paramCount)
		args = append(args, filter.RunID)
		paramCount++
	}
	if filter.Category != "" {
		query += fmt.Sprintf(` AND category = $%d`, paramCount)
		args = append(args, filter.Category)
		paramCount++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(` AND created_at >= $%d`, paramCount)
		args = append(args, *filter.Since)
		paramCount++
	}

	query += ` ORDER BY created_at DESC, search_rank ASC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, paramCount)
		args = append(args, filter.Limit)
		paramCount++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, paramCount)
		args = append(args, filter.Offset)
		paramCount++
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	var entries []*storage.Entry
	for rows.Next() {
		var e storage.Entry
		var categoriesJSON, keywordsJSON []byte

		err := rows.Scan(
			&e.ID, &e.RunID, &e.Category, &categoriesJSON, &e.Title, &e.URL, &e.Snippet,
			&e.Rank, &keywordsJSON, &e.CaptureStatus, &e.ScreenshotPath, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}

		if err := json.Unmarshal(categoriesJSON, &e.Categories); err != nil {
			return nil, fmt.Errorf("failed to decode categories: %w", err)
		}
		if len(keywordsJSON) > 0 {
			if err := json.Unmarshal(keywordsJSON, &e.MatchedKeywords); err != nil {
				return nil, fmt.Errorf("failed to decode matched keywords: %w", err)
			}
		}

		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read post rows: %w", err)
	}

	return entries, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
