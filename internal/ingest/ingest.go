// Package ingest implements the item ingestion and enrichment pipeline:
// bounded multi-image intake, atomic item creation, and AI attribute
// enrichment with non-destructive merging.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/jkorpela/wardrobe/internal/blob"
	"github.com/jkorpela/wardrobe/internal/imaging"
	"github.com/jkorpela/wardrobe/internal/storage"
	"github.com/jkorpela/wardrobe/internal/vision"
)

// MaxImagesPerItem caps how many photos an item may carry. Submissions with
// more images are rejected outright rather than truncated.
const MaxImagesPerItem = 5

// ValidationError reports invalid caller input. Ingestion fails with it
// before anything is persisted.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

func validationErrorf(format string, a ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, a...)}
}

// ImageUpload is one raw photo submitted by the caller.
type ImageUpload struct {
	Filename string
	Data     []byte
	// Role is optional; when empty the first image becomes main and the
	// rest detail shots.
	Role storage.ImageRole
}

// Metadata carries the caller-supplied item fields.
type Metadata struct {
	Name             string
	CategoryName     string
	Brand            string
	Color            string
	Size             string
	Material         string
	Pattern          string
	Price            *float64
	PurchaseDate     *time.Time
	PurchaseLocation string
	Description      string
}

// Service orchestrates ingestion and enrichment. All mutation of an item
// happens through Ingest and Analyze.
type Service struct {
	store     *storage.Store
	blobs     blob.Store
	analyzer  vision.Analyzer
	validator *imaging.Validator
}

// New creates the ingestion service. All collaborators are required.
func New(store *storage.Store, blobs blob.Store, analyzer vision.Analyzer) *Service {
	return &Service{
		store:     store,
		blobs:     blobs,
		analyzer:  analyzer,
		validator: imaging.NewValidator(),
	}
}

// Ingest registers a new garment: resolves the category, creates the item,
// validates, optimizes and uploads every photo, and optionally runs AI
// enrichment. Image upload failures roll the whole call back; enrichment
// failures degrade the item to status failed but never fail the call.
func (s *Service) Ingest(ctx context.Context, ownerID int64, uploads []ImageUpload, meta Metadata, useAI bool) (*storage.Item, error) {
	if meta.Name == "" {
		return nil, validationErrorf("item name is required")
	}
	if len(uploads) == 0 {
		return nil, validationErrorf("at least one image is required")
	}
	if len(uploads) > MaxImagesPerItem {
		return nil, validationErrorf("too many images: got %d, max %d", len(uploads), MaxImagesPerItem)
	}

	// Validate every image before touching storage
	for i, upload := range uploads {
		if err := s.validator.Validate(upload.Data); err != nil {
			return nil, validationErrorf("image %d (%s): %v", i+1, upload.Filename, err)
		}
	}

	item := &storage.Item{
		OwnerID:          ownerID,
		Name:             meta.Name,
		Brand:            meta.Brand,
		Color:            meta.Color,
		Size:             meta.Size,
		Material:         meta.Material,
		Pattern:          meta.Pattern,
		Price:            meta.Price,
		PurchaseDate:     meta.PurchaseDate,
		PurchaseLocation: meta.PurchaseLocation,
		Description:      meta.Description,
		AnalysisStatus:   storage.StatusPending,
	}

	if meta.CategoryName != "" {
		category, err := s.store.ResolveCategory(ctx, meta.CategoryName)
		if err != nil {
			if errors.Is(err, storage.ErrEmptyCategoryName) {
				return nil, validationErrorf("category name is empty")
			}
			return nil, fmt.Errorf("failed to resolve category: %w", err)
		}
		item.CategoryID = &category.ID
	}

	if err := s.store.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}

	if err := s.uploadImages(ctx, item, uploads); err != nil {
		return nil, err
	}

	log.Info().
		Str("itemID", item.ID).
		Int64("ownerID", ownerID).
		Int("images", len(uploads)).
		Bool("useAI", useAI).
		Msg("item ingested")

	if !useAI {
		return item, nil
	}

	// Enrichment failure is observable only through the status field
	if err := s.Analyze(ctx, item.ID); err != nil {
		log.Error().Err(err).Str("itemID", item.ID).Msg("enrichment failed during ingest")
	}

	return s.store.GetItem(ctx, item.ID)
}

// uploadImages optimizes and uploads all photos concurrently, then persists
// the image rows in caller order. Any failure rolls back uploaded blobs and
// the item row: a half-populated item is not a valid terminal state.
func (s *Service) uploadImages(ctx context.Context, item *storage.Item, uploads []ImageUpload) error {
	folder := "clothing_items/" + item.ID

	type uploaded struct {
		uri  string
		size int64
	}
	results := make([]uploaded, len(uploads))

	var mu sync.Mutex
	var uploadedURIs []string

	g, gctx := errgroup.WithContext(ctx)
	for i := range uploads {
		g.Go(func() error {
			optimized, err := imaging.Optimize(uploads[i].Data, imaging.DefaultQuality, imaging.DefaultUploadMaxDimension)
			if err != nil {
				return fmt.Errorf("failed to optimize image %d: %w", i+1, err)
			}

			uri, err := s.blobs.Upload(gctx, optimized, folder)
			if err != nil {
				return fmt.Errorf("failed to upload image %d: %w", i+1, err)
			}

			mu.Lock()
			uploadedURIs = append(uploadedURIs, uri)
			mu.Unlock()

			results[i] = uploaded{uri: uri, size: int64(len(optimized))}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.rollback(ctx, item.ID, uploadedURIs)
		return err
	}

	for i, res := range results {
		role := uploads[i].Role
		if role == "" {
			role = storage.RoleDetail
			if i == 0 {
				role = storage.RoleMain
			}
		}
		img := &storage.ItemImage{
			ItemID:    item.ID,
			URI:       res.uri,
			Role:      role,
			Position:  i + 1,
			AltText:   item.Name,
			SizeBytes: res.size,
		}
		if err := s.store.AddImage(ctx, img); err != nil {
			s.rollback(ctx, item.ID, uploadedURIs)
			return fmt.Errorf("failed to persist image %d: %w", i+1, err)
		}
	}
	return nil
}

// rollback undoes a failed ingestion: best-effort blob deletes plus removal
// of the item row (image rows cascade).
func (s *Service) rollback(ctx context.Context, itemID string, uris []string) {
	cleanupCtx := context.WithoutCancel(ctx)
	for _, uri := range uris {
		s.blobs.Delete(cleanupCtx, uri)
	}
	if err := s.store.DeleteItem(cleanupCtx, itemID); err != nil {
		log.Error().Err(err).Str("itemID", itemID).Msg("failed to roll back item")
	}
	log.Warn().Str("itemID", itemID).Int("blobs", len(uris)).Msg("ingestion rolled back")
}
