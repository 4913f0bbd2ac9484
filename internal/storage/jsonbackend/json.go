// Package jsonbackend archives posts as NDJSON, one entry per line.
// It is the zero-infrastructure driver: no server, no schema, readable
// with standard tools.
package jsonbackend

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/MihirGambhire/linkedin-monitor/internal/storage"
)

var _ storage.Backend = (*jsonBackend)(nil)

// jsonBackend appends through a single write handle. Queries open
// their own read handle, so the append offset is never disturbed.
type jsonBackend struct {
	mu   sync.Mutex
	path string
	file *os.File
	enc  *json.Encoder
}

// New opens or creates the NDJSON archive at path.
func New(path string) (storage.Backend, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive file: %w", err)
	}
	return &jsonBackend{path: path, file: f, enc: json.NewEncoder(f)}, nil
}

// Save appends one entry. Encoder.Encode terminates the line, so the
// file stays valid NDJSON.
func (b *jsonBackend) Save(ctx context.Context, entry *storage.Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.enc.Encode(entry); err != nil {
		return fmt.Errorf("failed to append entry: %w", err)
	}
	return nil
}

// Query reads the whole file and filters in memory. The newest-first
// order and paging are applied after the scan, matching what the SQL
// drivers push into their ORDER BY and LIMIT clauses.
func (b *jsonBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	f, err := os.Open(b.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive file: %w", err)
	}
	defer f.Close()

	var out []*storage.Entry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		e := new(storage.Entry)
		if err := json.Unmarshal(line, e); err != nil {
			return nil, fmt.Errorf("failed to decode archive line: %w", err)
		}
		if matches(filter, e) {
			out = append(out, e)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read archive file: %w", err)
	}

	slices.SortStableFunc(out, func(a, b *storage.Entry) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return page(out, filter.Offset, filter.Limit), nil
}

func matches(f storage.Filter, e *storage.Entry) bool {
	if f.RunID != "" && e.RunID != f.RunID {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if f.Since != nil && e.CreatedAt.Before(*f.Since) {
		return false
	}
	return true
}

// page applies offset then limit to the sorted slice.
func page(entries []*storage.Entry, offset, limit int) []*storage.Entry {
	if offset > 0 {
		if offset >= len(entries) {
			return nil
		}
		entries = entries[offset:]
	}
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries
}

func (b *jsonBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
