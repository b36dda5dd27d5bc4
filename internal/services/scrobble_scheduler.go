package services

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

// ScrobbleScheduler runs the background scrobble sync on an interval.
type ScrobbleScheduler struct {
	scrobbles *ScrobbleService
	interval  time.Duration
}

// NewScrobbleScheduler creates a new scheduler
func NewScrobbleScheduler(scrobbles *ScrobbleService, interval time.Duration) *ScrobbleScheduler {
	return &ScrobbleScheduler{scrobbles: scrobbles, interval: interval}
}

// Start runs the sync loop until ctx is cancelled. Call in a goroutine.
func (s *ScrobbleScheduler) Start(ctx context.Context) {
	// Jitter the first run so restarts don't hammer Spotify in lockstep.
	initial := time.Duration(rand.Int63n(int64(s.interval / 10)))
	slog.Info("Scrobble scheduler started", "interval", s.interval, "first_run_in", initial)

	timer := time.NewTimer(initial)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Scrobble scheduler stopped")
			return
		case <-timer.C:
		}

		s.runOnce(ctx)
		timer.Reset(s.nextInterval())
	}
}

// nextInterval spreads runs within ±10% of the configured interval so
// instances drift apart over time.
func (s *ScrobbleScheduler) nextInterval() time.Duration {
	base := int64(s.interval)
	return time.Duration(base - base/10 + rand.Int63n(base/5+1))
}

func (s *ScrobbleScheduler) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	start := time.Now()
	total, err := s.scrobbles.SyncAll(runCtx)
	if err != nil {
		slog.Error("Scrobble sync run failed", "error", err, "duration", time.Since(start))
		return
	}
	slog.Info("Scrobble sync run finished", "new_scrobbles", total, "duration", time.Since(start))
}
