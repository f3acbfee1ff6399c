package journal

// retention.go runs the journal clean-up job.
//
// The job deletes events older than the configured age, immediately on start
// and then on every tick, until the context is cancelled. A failed run is
// logged and retried on the next tick; it never stops the application.

import (
	"context"
	"log/slog"
	"time"
)

// Pruner deletes events older than maxAge.
type Pruner interface {
	Prune(ctx context.Context, maxAge time.Duration) (int64, error)
}

// RetentionConfig controls the clean-up job. Zero values use the defaults.
type RetentionConfig struct {
	MaxAge        time.Duration // How long events are kept (default: 90 days)
	CheckInterval time.Duration // How often to run (default: 24h)
}

const (
	DefaultRetention     = 90 * 24 * time.Hour
	DefaultCheckInterval = 24 * time.Hour
)

func (c RetentionConfig) withDefaults() RetentionConfig {
	if c.MaxAge <= 0 {
		c.MaxAge = DefaultRetention
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = DefaultCheckInterval
	}
	return c
}

// StartRetention prunes old events until ctx is cancelled. It blocks; run it
// in its own goroutine.
func StartRetention(ctx context.Context, p Pruner, cfg RetentionConfig) {
	cfg = cfg.withDefaults()
	slog.Info("journal retention started",
		"max_age", cfg.MaxAge.String(),
		"check_interval", cfg.CheckInterval.String(),
	)

	runPrune(ctx, p, cfg)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("journal retention stopped")
			return
		case <-ticker.C:
			runPrune(ctx, p, cfg)
		}
	}
}

func runPrune(ctx context.Context, p Pruner, cfg RetentionConfig) {
	start := time.Now()
	n, err := p.Prune(ctx, cfg.MaxAge)
	if err != nil {
		slog.Error("journal prune failed", "error", err)
		return
	}
	slog.Info("journal pruned",
		"events_deleted", n,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
