package dispatch

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jkorpela/wardrobe/internal/storage"
)

const (
	// SweepInterval is the time between cleanup passes.
	SweepInterval = 10 * time.Minute

	// FailedRetryAge is how long an item sits in the failed state before a
	// sweep resets it to pending and re-enqueues it.
	FailedRetryAge = time.Hour
)

// Sweeper periodically resets stale failed analyses back to pending and
// re-enqueues them. This explicit reset is the only automatic path out of
// the failed state.
type Sweeper struct {
	store      *storage.Store
	dispatcher Dispatcher
	interval   time.Duration
	retryAge   time.Duration
}

// NewSweeper creates a sweeper with the default cadence.
func NewSweeper(store *storage.Store, dispatcher Dispatcher) *Sweeper {
	return &Sweeper{
		store:      store,
		dispatcher: dispatcher,
		interval:   SweepInterval,
		retryAge:   FailedRetryAge,
	}
}

// Run executes sweep passes until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	log.Info().Dur("interval", s.interval).Msg("starting analysis sweeper")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("analysis sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep performs one reset-and-requeue pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	ids, err := s.store.ResetStalledAnalyses(ctx, s.retryAge)
	if err != nil {
		log.Error().Err(err).Msg("failed to reset stalled analyses")
		return
	}
	if len(ids) == 0 {
		return
	}

	for _, id := range ids {
		if err := s.dispatcher.Enqueue(ctx, id); err != nil {
			log.Error().Err(err).Str("itemID", id).Msg("failed to re-enqueue item")
		}
	}
	log.Info().Int("items", len(ids)).Msg("re-enqueued stalled analyses")
}
