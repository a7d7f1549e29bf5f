package queue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const sweepTimeout = 2 * time.Minute

// GarbageCollector drops dead-lettered snapshot and rollover jobs once they
// are older than the retention window. Those jobs are only useful for
// inspection; the next mutation or rollover rewrites the same history day.
type GarbageCollector struct {
	purger    DLQPurger
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger
}

// NewGarbageCollector creates a collector. A nil purger makes every sweep a no-op.
func NewGarbageCollector(purger DLQPurger, interval, retention time.Duration, logger *zap.Logger) *GarbageCollector {
	return &GarbageCollector{
		purger:    purger,
		interval:  interval,
		retention: retention,
		logger:    logger,
	}
}

// Start sweeps once immediately and then on every interval until ctx is
// cancelled. A non-positive interval only runs the first sweep.
func (gc *GarbageCollector) Start(ctx context.Context) error {
	gc.sweepAndLog(ctx)
	if gc.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(gc.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			gc.sweepAndLog(ctx)
		}
	}
}

// Sweep purges once and reports how many messages were dropped.
func (gc *GarbageCollector) Sweep(ctx context.Context) (int, error) {
	if gc.purger == nil {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()
	n, err := gc.purger.PurgeOlderThan(ctx, gc.retention)
	if err != nil {
		return n, fmt.Errorf("failed to purge dead-lettered jobs: %w", err)
	}
	return n, nil
}

func (gc *GarbageCollector) sweepAndLog(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	n, err := gc.Sweep(ctx)
	if err != nil {
		gc.logger.Warn("dlq_gc_failed", zap.Error(err))
		return
	}
	if n > 0 {
		gc.logger.Info("dlq_gc_purged",
			zap.Int("count", n),
			zap.Duration("retention", gc.retention))
	}
}
