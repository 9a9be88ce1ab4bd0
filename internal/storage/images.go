package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AddImage persists a photo record for an item. The position must be unique
// per item; violating it is a caller bug and surfaces as an error.
func (s *Store) AddImage(ctx context.Context, img *ItemImage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if img.ID == "" {
		img.ID = uuid.New().String()
	}
	if img.Role == "" {
		img.Role = RoleMain
	}
	img.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO item_images (id, item_id, uri, role, position, alt_text, size_bytes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, img.ID, img.ItemID, img.URI, string(img.Role), img.Position, img.AltText, img.SizeBytes, img.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert item image: %w", err)
	}
	return nil
}

// ImagesForItem returns an item's photos ordered by upload position.
func (s *Store) ImagesForItem(ctx context.Context, itemID string) ([]ItemImage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_id, uri, role, position, alt_text, size_bytes, created_at
		FROM item_images WHERE item_id = ? ORDER BY position
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query item images: %w", err)
	}
	defer rows.Close()

	var images []ItemImage
	for rows.Next() {
		var img ItemImage
		var role string
		if err := rows.Scan(&img.ID, &img.ItemID, &img.URI, &role, &img.Position, &img.AltText, &img.SizeBytes, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan item image: %w", err)
		}
		img.Role = ImageRole(role)
		images = append(images, img)
	}
	return images, rows.Err()
}

// DeleteImage removes a single photo record.
func (s *Store) DeleteImage(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM item_images WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete item image: %w", err)
	}
	return nil
}
