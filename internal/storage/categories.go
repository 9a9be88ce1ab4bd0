package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyCategoryName is returned when a category name normalizes to nothing.
var ErrEmptyCategoryName = errors.New("category name is empty")

// Slugify normalizes a category name to its slug form:
// lower-cased with whitespace runs collapsed to single hyphens.
func Slugify(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(name))), "-")
}

// ResolveCategory returns the category with the given name, creating it on
// first use. Two concurrent resolutions of the same new name yield the same
// row: the insert is a no-op on conflict and the following select observes
// the winner.
func (s *Store) ResolveCategory(ctx context.Context, name string) (*Category, error) {
	name = strings.TrimSpace(name)
	slug := Slugify(name)
	if slug == "" {
		return nil, ErrEmptyCategoryName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// The insert can lose on either unique column: name when the exact
	// spelling exists, slug alone when a case variant does.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (name, slug)
		VALUES (?, ?)
		ON CONFLICT(name) DO NOTHING
		ON CONFLICT(slug) DO NOTHING
	`, name, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to insert category: %w", err)
	}

	return s.categoryBySlug(ctx, slug)
}

// categoryBySlug looks a category up by its canonical identity. The insert
// above may have been a no-op on either unique column, so the name spelling
// the caller used is not guaranteed to be the stored one.
func (s *Store) categoryBySlug(ctx context.Context, slug string) (*Category, error) {
	var c Category
	var parentID sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, slug, parent_id, created_at FROM categories WHERE slug = ?",
		slug,
	).Scan(&c.ID, &c.Name, &c.Slug, &parentID, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}
	if parentID.Valid {
		c.ParentID = &parentID.Int64
	}
	return &c, nil
}

// GetCategory retrieves a category by id. Returns nil, nil if it doesn't exist.
func (s *Store) GetCategory(ctx context.Context, id int64) (*Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c Category
	var parentID sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, slug, parent_id, created_at FROM categories WHERE id = ?",
		id,
	).Scan(&c.ID, &c.Name, &c.Slug, &parentID, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}
	if parentID.Valid {
		c.ParentID = &parentID.Int64
	}
	return &c, nil
}
