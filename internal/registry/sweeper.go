package registry

import (
	"context"
	"time"

	"github.com/RealistikOsu/FastStreamDB/internal/metrics"
	"go.uber.org/zap"
)

// RunSweeper deletes idle streams on a fixed interval until ctx is cancelled.
// The interval equals the idle window, so an untouched stream is removed
// between one and two windows after its last touch.
func (r *Registry) RunSweeper(ctx context.Context, maxIdle time.Duration) error {
	ticker := time.NewTicker(maxIdle)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			removed := r.Sweep(maxIdle)
			metrics.SweepDuration.Observe(time.Since(start).Seconds())
			if removed > 0 {
				r.logger.Info("swept idle streams",
					zap.Int("removed", removed),
					zap.Duration("max_idle", maxIdle),
				)
			}
		}
	}
}

// Sweep deletes every stream untouched for longer than maxIdle and returns
// how many were removed. Candidates are collected under a read view, then
// removed one entry at a time so enqueues are never blocked for longer than
// a single removal. Each candidate is re-checked before deletion in case it
// was touched after the scan.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	now := time.Now()

	r.mu.RLock()
	candidates := make([]uint32, 0, 16)
	for id, s := range r.streams {
		s.mu.Lock()
		idle := now.Sub(s.lastTouched) > maxIdle
		s.mu.Unlock()
		if idle {
			candidates = append(candidates, id)
		}
	}
	r.mu.RUnlock()

	removed := 0
	for _, id := range candidates {
		r.mu.Lock()
		s, ok := r.streams[id]
		if ok {
			s.mu.Lock()
			stillIdle := now.Sub(s.lastTouched) > maxIdle
			s.mu.Unlock()
			if stillIdle {
				delete(r.streams, id)
				removed++
				metrics.StreamsActive.Dec()
				metrics.StreamsExpired.Inc()
			}
		}
		r.mu.Unlock()
	}
	return removed
}
