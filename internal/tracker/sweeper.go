package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Bynd-ai/onepager-console/internal/metrics"
)

// SweeperStore is the subset of the store the reclamation sweeper needs.
type SweeperStore interface {
	ReclaimStale(ctx context.Context, cutoff time.Time, message string) (int64, error)
}

// Sweeper force-fails jobs stuck in-progress past the staleness threshold.
// There is no heartbeat or lease: elapsed time since creation is the only
// abandonment signal, so the threshold must comfortably exceed the worst-case
// pipeline duration. Sweeping is idempotent; once everything stale is
// reclaimed, further runs find nothing.
type Sweeper struct {
	store      SweeperStore
	staleAfter time.Duration
	now        func() time.Time
}

// NewSweeper creates a Sweeper with the default staleness threshold.
func NewSweeper(s SweeperStore, staleAfter time.Duration) *Sweeper {
	return &Sweeper{
		store:      s,
		staleAfter: staleAfter,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Sweep reclaims with the configured threshold.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	return s.SweepOlderThan(ctx, s.staleAfter)
}

// SweepOlderThan reclaims every in-progress record created before
// now-staleAfter. A total store failure aborts and propagates; it is not
// retried here.
func (s *Sweeper) SweepOlderThan(ctx context.Context, staleAfter time.Duration) (int64, error) {
	cutoff := s.now().Add(-staleAfter)
	message := fmt.Sprintf("Request timed out after %d hours", int(staleAfter.Hours()))

	count, err := s.store.ReclaimStale(ctx, cutoff, message)
	if err != nil {
		return 0, fmt.Errorf("sweep stale requests: %w", err)
	}
	if count > 0 {
		metrics.ObserveReclaimed(count)
		slog.Info("reclaimed stale requests", "count", count, "cutoff", cutoff)
	}
	return count, nil
}

// Run sweeps on the given interval until ctx is cancelled. Errors are logged
// and the loop continues; a broken store today may be healthy next tick.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				slog.Error("sweep failed", "error", err)
			}
		}
	}
}
