// Package sweeper implements the lock/timeout sweeper (spec §4.5): a
// periodic background task that resets stale locks and promotes
// logical rows whose physical locators have all gone ready. Loop
// shape grounded on cuemby-warren's pkg/reconciler/reconciler.go.
package sweeper

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/skystorehq/geogw/internal/log"
	"github.com/skystorehq/geogw/internal/metrics"
	"github.com/skystorehq/geogw/internal/store"
)

// Sweeper periodically clears stale physical-locator locks and
// promotes logical rows that have finished their two-phase commit
// (spec §4.5).
type Sweeper struct {
	st       *store.Store
	interval time.Duration
	cutoff   time.Duration
	logger   zerolog.Logger
	stopCh   chan struct{}
}

func New(st *store.Store, interval, cutoff time.Duration) *Sweeper {
	return &Sweeper{
		st:       st,
		interval: interval,
		cutoff:   cutoff,
		logger:   log.WithComponent("sweeper"),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the sweep loop in its own goroutine.
func (s *Sweeper) Start() {
	go s.run()
}

// Stop signals the sweep loop to exit.
func (s *Sweeper) Stop() { close(s.stopCh) }

func (s *Sweeper) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.interval).Dur("cutoff", s.cutoff).Msg("sweeper started")

	for {
		select {
		case <-ticker.C:
			s.sweepOnce()
		case <-s.stopCh:
			s.logger.Info().Msg("sweeper stopped")
			return
		}
	}
}

func (s *Sweeper) sweepOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	locksCleared, objectsPromoted, err := s.st.SweepStaleLocks(ctx, s.cutoff)
	if err != nil {
		s.logger.Error().Err(err).Msg("sweep cycle failed")
		return
	}
	metrics.SweepLocksCleared.Add(float64(locksCleared))
	metrics.SweepObjectsPromoted.Add(float64(objectsPromoted))
	if locksCleared > 0 || objectsPromoted > 0 {
		s.logger.Info().Int64("locks_cleared", locksCleared).Int64("objects_promoted", objectsPromoted).Msg("sweep cycle")
	}
}
