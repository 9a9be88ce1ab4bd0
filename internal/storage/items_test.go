package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGetItem(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	price := 49.90
	item := &Item{
		OwnerID: 1,
		Name:    "Blue Shirt",
		Brand:   "Marimekko",
		Price:   &price,
	}
	require.NoError(t, store.CreateItem(ctx, item))
	require.NotEmpty(t, item.ID)

	got, err := store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Blue Shirt", got.Name)
	assert.Equal(t, "Marimekko", got.Brand)
	assert.Equal(t, StatusPending, got.AnalysisStatus)
	assert.True(t, got.IsActive)
	require.NotNil(t, got.Price)
	assert.InDelta(t, 49.90, *got.Price, 0.001)
}

func TestGetItemNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetItem(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestUpdateItemStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	item := createTestItem(t, store, 1, "Shirt")

	require.NoError(t, store.UpdateItemStatus(ctx, item.ID, StatusProcessing))

	got, err := store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, got.AnalysisStatus)

	err = store.UpdateItemStatus(ctx, "nonexistent", StatusFailed)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestUpdateItemDetails(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	item := createTestItem(t, store, 1, "Shirt")

	item.Color = "blue"
	item.Material = "cotton"
	item.Description = "A blue cotton shirt."
	require.NoError(t, store.UpdateItemDetails(ctx, item))

	got, err := store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "blue", got.Color)
	assert.Equal(t, "cotton", got.Material)
	assert.Equal(t, "A blue cotton shirt.", got.Description)
	// Fields outside the merge-controlled set are untouched
	assert.Equal(t, "Shirt", got.Name)
	assert.Equal(t, StatusPending, got.AnalysisStatus)
}

func TestDeactivateItem(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	item := createTestItem(t, store, 1, "Old Coat")

	require.NoError(t, store.DeactivateItem(ctx, item.ID))

	got, err := store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestIncrementWearCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	item := createTestItem(t, store, 1, "Shirt")

	require.NoError(t, store.IncrementWearCount(ctx, item.ID))
	require.NoError(t, store.IncrementWearCount(ctx, item.ID))

	got, err := store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.WearCount)
}

func TestDeleteItemCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	item := createTestItem(t, store, 1, "Shirt")

	require.NoError(t, store.AddImage(ctx, &ItemImage{ItemID: item.ID, URI: "https://img/1.jpg", Position: 1}))
	require.NoError(t, store.SaveAnalysis(ctx, &AnalysisRecord{ItemID: item.ID, RawResponse: "{}"}))

	require.NoError(t, store.DeleteItem(ctx, item.ID))

	_, err := store.GetItem(ctx, item.ID)
	assert.ErrorIs(t, err, ErrItemNotFound)

	images, err := store.ImagesForItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Empty(t, images)

	rec, err := store.AnalysisForItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestDeleteItemCascadesOnFreshConnection(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	item := createTestItem(t, store, 1, "Coat")

	require.NoError(t, store.AddImage(ctx, &ItemImage{ItemID: item.ID, URI: "https://img/1.jpg", Position: 1}))
	require.NoError(t, store.SaveAnalysis(ctx, &AnalysisRecord{ItemID: item.ID, RawResponse: "{}"}))

	// foreign_keys is a per-connection pragma; drop the idle connection so
	// the delete runs on a brand-new pooled one and must still cascade
	store.db.SetMaxIdleConns(0)

	require.NoError(t, store.DeleteItem(ctx, item.ID))

	images, err := store.ImagesForItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Empty(t, images)

	rec, err := store.AnalysisForItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	shirts, err := store.ResolveCategory(ctx, "Shirts")
	require.NoError(t, err)

	a := &Item{OwnerID: 1, Name: "Shirt A", CategoryID: &shirts.ID}
	require.NoError(t, store.CreateItem(ctx, a))
	require.NoError(t, store.IncrementWearCount(ctx, a.ID))

	b := createTestItem(t, store, 1, "Mystery Garment")
	require.NoError(t, store.UpdateItemStatus(ctx, b.ID, StatusCompleted))

	// Other owners and deactivated items are excluded
	createTestItem(t, store, 2, "Someone Else's")
	c := createTestItem(t, store, 1, "Retired")
	require.NoError(t, store.DeactivateItem(ctx, c.ID))

	stats, err := store.Stats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalItems)
	assert.Equal(t, 1, stats.ByCategory["Shirts"])
	assert.Equal(t, 1, stats.ByCategory["Uncategorized"])
	assert.Equal(t, 1, stats.ByStatus[StatusPending])
	assert.Equal(t, 1, stats.ByStatus[StatusCompleted])
	assert.Equal(t, 1, stats.TotalWearUses)
}

func TestResetStalledAnalyses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	failed := createTestItem(t, store, 1, "Failed Item")
	require.NoError(t, store.UpdateItemStatus(ctx, failed.ID, StatusFailed))

	fresh := createTestItem(t, store, 1, "Fresh Item")
	require.NoError(t, store.UpdateItemStatus(ctx, fresh.ID, StatusCompleted))

	// A negative age puts the cutoff in the future, catching rows updated
	// just now.
	ids, err := store.ResetStalledAnalyses(ctx, -time.Second)
	require.NoError(t, err)
	require.Equal(t, []string{failed.ID}, ids)

	got, err := store.GetItem(ctx, failed.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.AnalysisStatus)

	// Completed items are never touched
	got, err = store.GetItem(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.AnalysisStatus)

	// Nothing left to reset
	ids, err = store.ResetStalledAnalyses(ctx, -time.Second)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
