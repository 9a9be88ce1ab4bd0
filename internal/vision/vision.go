// Package vision wraps a vision-capable model for extracting structured
// garment attributes from item photos.
package vision

import (
	"context"
	"time"
)

// Attribute field names recognized by the enrichment pipeline. Analysis
// results are keyed by these names; anything else a model returns is dropped.
const (
	FieldCategory   = "category"
	FieldBrand      = "brand"
	FieldColor      = "color"
	FieldSize       = "size"
	FieldMaterial   = "material"
	FieldPattern    = "pattern"
	FieldStyle      = "style"
	FieldCondition  = "condition"
	FieldPriceRange = "price_range"
)

// Analysis is the outcome of one vision call over an item's photos.
type Analysis struct {
	RawResponse   string
	Attributes    map[string]string
	Confidence    map[string]float64 // field name -> [0,1]
	Duration      time.Duration
	EstimatedCost float64
}

// TagFields holds values read from a garment's label photo.
type TagFields struct {
	Brand       string `json:"brand"`
	Size        string `json:"size"`
	Price       string `json:"price"`
	Material    string `json:"material"`
	Care        string `json:"care"`
	ModelNumber string `json:"model_number"`
}

// Analyzer extracts structured garment attributes from photos.
type Analyzer interface {
	// Analyze inspects one or more photos of the same garment and returns
	// an attribute map. An unparseable model reply degrades to a
	// low-confidence keyword scan, never an error; errors are returned only
	// when the external call itself fails or no images are supplied.
	Analyze(ctx context.Context, images [][]byte) (*Analysis, error)

	// ExtractTagFields reads brand, size, price and care details from a
	// single label photo, with the same parse-or-fallback discipline.
	ExtractTagFields(ctx context.Context, image []byte) (*TagFields, error)

	// Describe generates a short item summary from extracted attributes.
	// It never fails; on model errors it falls back to a templated
	// concatenation.
	Describe(ctx context.Context, attrs map[string]string) string
}
