package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SaveAnalysis upserts the analysis result for an item. Repeated saves keep
// exactly one row per item, holding the latest call's data.
func (s *Store) SaveAnalysis(ctx context.Context, rec *AnalysisRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	attrs, err := json.Marshal(orEmptyStrings(rec.Attributes))
	if err != nil {
		return fmt.Errorf("failed to marshal attributes: %w", err)
	}
	conf, err := json.Marshal(orEmptyFloats(rec.Confidence))
	if err != nil {
		return fmt.Errorf("failed to marshal confidence scores: %w", err)
	}

	now := time.Now().UTC()
	rec.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analysis_results (item_id, raw_response, attributes, confidence, duration_ms, estimated_cost, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(item_id) DO UPDATE SET
			raw_response = excluded.raw_response,
			attributes = excluded.attributes,
			confidence = excluded.confidence,
			duration_ms = excluded.duration_ms,
			estimated_cost = excluded.estimated_cost,
			updated_at = excluded.updated_at
	`, rec.ItemID, rec.RawResponse, string(attrs), string(conf),
		rec.Duration.Milliseconds(), rec.EstimatedCost, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert analysis result: %w", err)
	}
	return nil
}

// AnalysisForItem returns the stored analysis result for an item.
// Returns nil, nil if the item has never been analyzed.
func (s *Store) AnalysisForItem(ctx context.Context, itemID string) (*AnalysisRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rec AnalysisRecord
	var attrs, conf string
	var durationMs int64

	err := s.db.QueryRowContext(ctx, `
		SELECT item_id, raw_response, attributes, confidence, duration_ms, estimated_cost, created_at, updated_at
		FROM analysis_results WHERE item_id = ?
	`, itemID).Scan(&rec.ItemID, &rec.RawResponse, &attrs, &conf, &durationMs, &rec.EstimatedCost, &rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis result: %w", err)
	}

	if err := json.Unmarshal([]byte(attrs), &rec.Attributes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal attributes: %w", err)
	}
	if err := json.Unmarshal([]byte(conf), &rec.Confidence); err != nil {
		return nil, fmt.Errorf("failed to unmarshal confidence scores: %w", err)
	}
	rec.Duration = time.Duration(durationMs) * time.Millisecond

	return &rec, nil
}

func orEmptyStrings(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func orEmptyFloats(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return m
}
