// Package dispatch delivers deferred enrichment requests to the idempotent
// analyze entry point. Delivery is at-least-once; duplicate deliveries are
// harmless because the consumer upserts.
package dispatch

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// AnalyzeFunc is the enrichment entry point a consumer invokes for each
// delivered item id. It must be idempotent.
type AnalyzeFunc func(ctx context.Context, itemID string) error

// Dispatcher queues deferred enrichment requests.
type Dispatcher interface {
	// Enqueue schedules enrichment of the item. The request is eventually
	// delivered at least once.
	Enqueue(ctx context.Context, itemID string) error
}

// Worker is an in-process dispatcher backed by a buffered channel. It is
// the default when no message broker is configured, and the two paths are
// interchangeable: both end at the same AnalyzeFunc.
type Worker struct {
	analyze AnalyzeFunc
	queue   chan string
}

var _ Dispatcher = (*Worker)(nil)

// NewWorker creates an in-process dispatcher with the given queue capacity.
func NewWorker(analyze AnalyzeFunc, capacity int) *Worker {
	if capacity <= 0 {
		capacity = 256
	}
	return &Worker{
		analyze: analyze,
		queue:   make(chan string, capacity),
	}
}

// Enqueue schedules enrichment of the item. It never blocks; it fails only
// when the queue is full.
func (w *Worker) Enqueue(_ context.Context, itemID string) error {
	select {
	case w.queue <- itemID:
		return nil
	default:
		return fmt.Errorf("dispatch queue is full")
	}
}

// Run consumes queued item ids until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	log.Info().Msg("starting enrichment worker")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("enrichment worker stopped")
			return
		case itemID := <-w.queue:
			if err := w.analyze(ctx, itemID); err != nil {
				log.Error().Err(err).Str("itemID", itemID).Msg("deferred enrichment failed")
			}
		}
	}
}
