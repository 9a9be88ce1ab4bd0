package dispatch

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jkorpela/wardrobe/internal/storage"
)

func TestWorkerDeliversEnqueuedItems(t *testing.T) {
	var mu sync.Mutex
	var got []string
	done := make(chan struct{})

	w := NewWorker(func(ctx context.Context, itemID string) error {
		mu.Lock()
		got = append(got, itemID)
		if len(got) == 2 {
			close(done)
		}
		mu.Unlock()
		return nil
	}, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, w.Enqueue(ctx, "item-a"))
	require.NoError(t, w.Enqueue(ctx, "item-b"))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not deliver both items")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"item-a", "item-b"}, got)
}

func TestWorkerEnqueueFullQueue(t *testing.T) {
	// No consumer running, capacity 1
	w := NewWorker(func(ctx context.Context, itemID string) error { return nil }, 1)
	ctx := context.Background()

	require.NoError(t, w.Enqueue(ctx, "item-a"))
	err := w.Enqueue(ctx, "item-b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "full")
}

func TestWorkerEnqueueNeverBlocks(t *testing.T) {
	w := NewWorker(func(ctx context.Context, itemID string) error { return nil }, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Enqueue is purely queue-state driven: a cancelled context neither
	// blocks nor rejects while there is room
	require.NoError(t, w.Enqueue(ctx, "item-a"))

	err := w.Enqueue(ctx, "item-b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "full")
}

func TestWorkerKeepsRunningAfterAnalyzeError(t *testing.T) {
	done := make(chan string, 2)

	w := NewWorker(func(ctx context.Context, itemID string) error {
		done <- itemID
		if itemID == "bad" {
			return assert.AnError
		}
		return nil
	}, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, w.Enqueue(ctx, "bad"))
	require.NoError(t, w.Enqueue(ctx, "good"))

	for _, want := range []string{"bad", "good"} {
		select {
		case got := <-done:
			assert.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("worker never processed %q", want)
		}
	}
}

type recordingDispatcher struct {
	mu  sync.Mutex
	ids []string
}

func (d *recordingDispatcher) Enqueue(ctx context.Context, itemID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, itemID)
	return nil
}

func TestSweepResetsAndRequeuesFailedItems(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	failed := &storage.Item{OwnerID: 1, Name: "Failed Coat", AnalysisStatus: storage.StatusPending}
	require.NoError(t, store.CreateItem(ctx, failed))
	require.NoError(t, store.UpdateItemStatus(ctx, failed.ID, storage.StatusProcessing))
	require.NoError(t, store.UpdateItemStatus(ctx, failed.ID, storage.StatusFailed))

	healthy := &storage.Item{OwnerID: 1, Name: "Fine Shirt", AnalysisStatus: storage.StatusPending}
	require.NoError(t, store.CreateItem(ctx, healthy))

	dispatcher := &recordingDispatcher{}
	sweeper := &Sweeper{
		store:      store,
		dispatcher: dispatcher,
		interval:   SweepInterval,
		retryAge:   -time.Second, // cutoff in the future: everything failed is stale
	}

	sweeper.Sweep(ctx)

	assert.Equal(t, []string{failed.ID}, dispatcher.ids)

	got, err := store.GetItem(ctx, failed.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.StatusPending, got.AnalysisStatus)

	// A second pass finds nothing left to reset
	sweeper.Sweep(ctx)
	assert.Len(t, dispatcher.ids, 1)
}

func TestSweepEmptyStore(t *testing.T) {
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	dispatcher := &recordingDispatcher{}
	sweeper := NewSweeper(store, dispatcher)
	sweeper.retryAge = -time.Second

	sweeper.Sweep(context.Background())
	assert.Empty(t, dispatcher.ids)
}
