// Package reaper periodically evicts delivery sessions that have gone silent.
package reaper

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/leeHildebrandtSE/servicesync-backend/internal/domain"
	"github.com/leeHildebrandtSE/servicesync-backend/internal/metrics"
)

// Reaper sweeps the session store on a fixed interval, removing sessions
// whose idle time exceeds the staleness threshold. Removal is logged, never
// broadcast.
type Reaper struct {
	store     domain.SessionStore
	clock     clockwork.Clock
	interval  time.Duration
	threshold time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func New(store domain.SessionStore, clock clockwork.Clock, interval, threshold time.Duration) *Reaper {
	return &Reaper{
		store:     store,
		clock:     clock,
		interval:  interval,
		threshold: threshold,
		stopCh:    make(chan struct{}),
	}
}

// Start launches the sweep loop in a background goroutine.
func (r *Reaper) Start() {
	r.wg.Add(1)
	go r.loop()
}

func (r *Reaper) loop() {
	defer r.wg.Done()

	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			r.Sweep()
		case <-r.stopCh:
			return
		}
	}
}

// Sweep scans for stale sessions and removes them. Returns the number of
// sessions removed. The scan holds only a read lock; deletions follow in a
// separate write phase.
func (r *Reaper) Sweep() int {
	start := r.clock.Now()

	stale := r.store.ScanStale(r.threshold)
	removed := 0
	for _, id := range stale {
		if r.store.Remove(id) {
			removed++
		}
	}

	metrics.ReaperSweepsTotal.Inc()
	metrics.ReaperSessionsReaped.Add(float64(removed))
	metrics.ReaperSweepDuration.Observe(r.clock.Since(start).Seconds())

	if removed > 0 {
		slog.Info("Cleaned up inactive sessions", "count", removed, "threshold", r.threshold)
	}
	return removed
}

// Stop halts the sweep loop and waits for it to exit.
func (r *Reaper) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
	})
	r.wg.Wait()
}
