package capture

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Engine captures one target. *Capturer implements it; tests substitute
// their own.
type Engine interface {
	Capture(ctx context.Context, t Target) Artifact
}

// CaptureAll screenshots the targets with at most concurrency tabs in
// flight. Artifacts come back in target order regardless of completion
// order. Individual failures are recorded in their artifact; the only
// error is caller cancellation.
func CaptureAll(ctx context.Context, eng Engine, targets []Target, concurrency int, logger *slog.Logger) ([]Artifact, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	artifacts := make([]Artifact, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, t := range targets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				artifacts[i] = Artifact{URL: t.URL, Status: StatusFailed, Reason: err.Error()}
				return err
			}
			artifacts[i] = eng.Capture(gctx, t)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Warn("capture pool interrupted", "error", err)
		return artifacts, err
	}

	return artifacts, nil
}
