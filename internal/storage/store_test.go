package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func createTestItem(t *testing.T, store *Store, ownerID int64, name string) *Item {
	t.Helper()
	item := &Item{OwnerID: ownerID, Name: name}
	require.NoError(t, store.CreateItem(context.Background(), item))
	return item
}

func TestStoreInitIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening an existing database must not fail
	store, err = NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Close())
}
