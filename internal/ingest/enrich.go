package ingest

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/jkorpela/wardrobe/internal/storage"
	"github.com/jkorpela/wardrobe/internal/vision"
)

// Analyze runs AI enrichment for an existing item. It is the idempotent
// entry point shared by inline ingestion, deferred queue delivery and
// retries: repeated calls upsert a single analysis result and recompute the
// status rather than accumulating state.
func (s *Service) Analyze(ctx context.Context, itemID string) error {
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return err
	}

	if err := s.store.UpdateItemStatus(ctx, itemID, storage.StatusProcessing); err != nil {
		return err
	}

	if err := s.enrich(ctx, item); err != nil {
		// The item and its images stay committed; only the status records
		// the failure.
		failCtx := context.WithoutCancel(ctx)
		if statusErr := s.store.UpdateItemStatus(failCtx, itemID, storage.StatusFailed); statusErr != nil {
			log.Error().Err(statusErr).Str("itemID", itemID).Msg("failed to record failed status")
		}
		log.Error().Err(err).Str("itemID", itemID).Msg("item enrichment failed")
		return err
	}

	return s.store.UpdateItemStatus(ctx, itemID, storage.StatusCompleted)
}

func (s *Service) enrich(ctx context.Context, item *storage.Item) error {
	images, err := s.store.ImagesForItem(ctx, item.ID)
	if err != nil {
		return err
	}
	if len(images) == 0 {
		return fmt.Errorf("item %s has no images to analyze", item.ID)
	}

	var photos [][]byte
	var tagPhoto []byte
	for _, img := range images {
		data, err := s.fetchImage(ctx, img.URI)
		if err != nil {
			return fmt.Errorf("failed to fetch image %s: %w", img.ID, err)
		}
		photos = append(photos, data)
		if img.Role == storage.RoleTag && tagPhoto == nil {
			tagPhoto = data
		}
	}

	analysis, err := s.analyzer.Analyze(ctx, photos)
	if err != nil {
		return fmt.Errorf("vision analysis failed: %w", err)
	}

	// A dedicated label photo can fill gaps the garment shots leave open.
	// Its failure is not enrichment failure.
	if tagPhoto != nil {
		if tag, err := s.analyzer.ExtractTagFields(ctx, tagPhoto); err != nil {
			log.Warn().Err(err).Str("itemID", item.ID).Msg("tag extraction failed")
		} else {
			mergeTagFields(analysis, tag)
		}
	}

	merged := mergeAttributes(item, analysis.Attributes)

	if item.CategoryID == nil {
		if name := analysis.Attributes[vision.FieldCategory]; name != "" {
			category, err := s.store.ResolveCategory(ctx, name)
			if err != nil {
				return fmt.Errorf("failed to resolve AI category: %w", err)
			}
			item.CategoryID = &category.ID
			merged = append(merged, vision.FieldCategory)
		}
	}

	if item.Description == "" {
		item.Description = s.analyzer.Describe(ctx, analysis.Attributes)
	}

	if err := s.store.UpdateItemDetails(ctx, item); err != nil {
		return err
	}

	record := &storage.AnalysisRecord{
		ItemID:        item.ID,
		RawResponse:   analysis.RawResponse,
		Attributes:    analysis.Attributes,
		Confidence:    analysis.Confidence,
		Duration:      analysis.Duration,
		EstimatedCost: analysis.EstimatedCost,
	}
	if err := s.store.SaveAnalysis(ctx, record); err != nil {
		return err
	}

	log.Info().
		Str("itemID", item.ID).
		Strs("mergedFields", merged).
		Dur("duration", analysis.Duration).
		Float64("costUSD", analysis.EstimatedCost).
		Msg("item enriched")

	return nil
}

// fetchImage downloads an uploaded photo through the blob store into memory.
func (s *Service) fetchImage(ctx context.Context, uri string) ([]byte, error) {
	path, err := s.blobs.DownloadTemp(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer os.Remove(path)
	return os.ReadFile(path)
}

// mergeTagFields folds label-photo fields into the analysis attribute map
// without overwriting values the garment shots already produced.
func mergeTagFields(analysis *vision.Analysis, tag *vision.TagFields) {
	fill := func(field, value string) {
		if value != "" && analysis.Attributes[field] == "" {
			analysis.Attributes[field] = value
			analysis.Confidence[field] = 0.9 // printed on the label
		}
	}
	fill(vision.FieldBrand, tag.Brand)
	fill(vision.FieldSize, tag.Size)
	fill(vision.FieldMaterial, tag.Material)
}
