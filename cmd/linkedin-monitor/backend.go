package main

import (
	"context"
	"fmt"

	"github.com/MihirGambhire/linkedin-monitor/internal/config"
	"github.com/MihirGambhire/linkedin-monitor/internal/storage"
	"github.com/MihirGambhire/linkedin-monitor/internal/storage/jsonbackend"
	"github.com/MihirGambhire/linkedin-monitor/internal/storage/postgres"
	"github.com/MihirGambhire/linkedin-monitor/internal/storage/sqlite"
)

// openBackend selects the archive backend by driver name. The caller
// owns Close.
func openBackend(ctx context.Context, ac config.ArchiveConfig) (storage.Backend, error) {
	switch ac.Driver {
	case "sqlite":
		return sqlite.New(ac.DSN)
	case "postgres":
		return postgres.New(ctx, ac.DSN)
	case "ndjson":
		return jsonbackend.New(ac.DSN)
	default:
		return nil, fmt.Errorf("unknown archive driver %q", ac.Driver)
	}
}
