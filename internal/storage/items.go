package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateItem inserts a new item. A missing id is generated, and timestamps
// and default status are filled in.
func (s *Store) CreateItem(ctx context.Context, item *Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.AnalysisStatus == "" {
		item.AnalysisStatus = StatusPending
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	item.IsActive = true

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (
			id, owner_id, name, category_id, brand, color, size, material,
			pattern, price, purchase_date, purchase_location, description,
			analysis_status, wear_count, is_active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		item.ID, item.OwnerID, item.Name, nullInt64(item.CategoryID),
		item.Brand, item.Color, item.Size, item.Material, item.Pattern,
		nullFloat64(item.Price), nullTime(item.PurchaseDate),
		item.PurchaseLocation, item.Description,
		string(item.AnalysisStatus), item.WearCount, item.IsActive,
		item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

// GetItem retrieves an item by id. Returns ErrItemNotFound if it doesn't exist.
func (s *Store) GetItem(ctx context.Context, id string) (*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getItem(ctx, id)
}

func (s *Store) getItem(ctx context.Context, id string) (*Item, error) {
	var item Item
	var categoryID sql.NullInt64
	var price sql.NullFloat64
	var purchaseDate sql.NullTime
	var status string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, category_id, brand, color, size, material,
			pattern, price, purchase_date, purchase_location, description,
			analysis_status, wear_count, is_active, created_at, updated_at
		FROM items WHERE id = ?
	`, id).Scan(
		&item.ID, &item.OwnerID, &item.Name, &categoryID,
		&item.Brand, &item.Color, &item.Size, &item.Material, &item.Pattern,
		&price, &purchaseDate, &item.PurchaseLocation, &item.Description,
		&status, &item.WearCount, &item.IsActive,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query item: %w", err)
	}

	item.AnalysisStatus = AnalysisStatus(status)
	if categoryID.Valid {
		item.CategoryID = &categoryID.Int64
	}
	if price.Valid {
		item.Price = &price.Float64
	}
	if purchaseDate.Valid {
		t := purchaseDate.Time
		item.PurchaseDate = &t
	}
	return &item, nil
}

// UpdateItemStatus sets the analysis status of an item in a single atomic
// update. Returns ErrItemNotFound if the item doesn't exist.
func (s *Store) UpdateItemStatus(ctx context.Context, id string, status AnalysisStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE items SET analysis_status = ?, updated_at = ? WHERE id = ?",
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update item status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrItemNotFound
	}
	return nil
}

// UpdateItemDetails writes the merge-controlled attribute columns of an item
// in one update. Only fields mutated by the enrichment merge step are
// written; ownership and lifecycle columns are untouched.
func (s *Store) UpdateItemDetails(ctx context.Context, item *Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE items SET
			category_id = ?, brand = ?, color = ?, size = ?, material = ?,
			pattern = ?, description = ?, updated_at = ?
		WHERE id = ?
	`,
		nullInt64(item.CategoryID), item.Brand, item.Color, item.Size,
		item.Material, item.Pattern, item.Description, item.UpdatedAt, item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update item details: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrItemNotFound
	}
	return nil
}

// DeleteItem hard-deletes an item. Images and the analysis result cascade.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

// DeactivateItem soft-deletes an item by clearing its active flag.
func (s *Store) DeactivateItem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE items SET is_active = 0, updated_at = ? WHERE id = ?",
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate item: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrItemNotFound
	}
	return nil
}

// IncrementWearCount bumps the wear counter of an item.
func (s *Store) IncrementWearCount(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE items SET wear_count = wear_count + 1, updated_at = ? WHERE id = ?",
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to increment wear count: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrItemNotFound
	}
	return nil
}

// WardrobeStats summarizes a user's active items.
type WardrobeStats struct {
	TotalItems    int
	ByCategory    map[string]int
	ByStatus      map[AnalysisStatus]int
	TotalWearUses int
}

// Stats computes wardrobe statistics over a user's active items.
func (s *Store) Stats(ctx context.Context, ownerID int64) (*WardrobeStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(c.name, 'Uncategorized'), i.analysis_status, i.wear_count
		FROM items i
		LEFT JOIN categories c ON c.id = i.category_id
		WHERE i.owner_id = ? AND i.is_active = 1
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	stats := &WardrobeStats{
		ByCategory: make(map[string]int),
		ByStatus:   make(map[AnalysisStatus]int),
	}
	for rows.Next() {
		var category, status string
		var wearCount int
		if err := rows.Scan(&category, &status, &wearCount); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		stats.TotalItems++
		stats.ByCategory[category]++
		stats.ByStatus[AnalysisStatus(status)]++
		stats.TotalWearUses += wearCount
	}
	return stats, rows.Err()
}

// ResetStalledAnalyses flips items that have sat in the failed state for at
// least olderThan back to pending and returns their ids, so a sweep can
// re-enqueue them. This is the only path from failed back to pending.
func (s *Store) ResetStalledAnalyses(ctx context.Context, olderThan time.Duration) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().Add(-olderThan)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		"SELECT id FROM items WHERE analysis_status = ? AND updated_at < ?",
		string(StatusFailed), cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query stalled items: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan stalled item: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(ids) == 0 {
		return nil, tx.Commit()
	}

	now := time.Now().UTC()
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			"UPDATE items SET analysis_status = ?, updated_at = ? WHERE id = ?",
			string(StatusPending), now, id,
		); err != nil {
			return nil, fmt.Errorf("failed to reset item %s: %w", id, err)
		}
	}

	return ids, tx.Commit()
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullFloat64(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}
