package vision

import (
	"regexp"
	"strings"
)

// fallbackConfidence is assigned to attributes recovered by keyword scan
// when the model reply could not be parsed as the expected schema.
const fallbackConfidence = 0.2

// Known vocabularies for the deterministic fallback scan. Multi-word terms
// precede their substrings so the most specific match wins.
var (
	knownCategories = []string{
		"t-shirt", "sweatshirt", "shirt", "blouse", "jeans", "trousers",
		"pants", "shorts", "skirt", "dress", "jacket", "coat", "blazer",
		"sweater", "hoodie", "cardigan", "suit", "scarf", "hat", "shoes",
		"sneakers", "boots",
	}
	knownColors = []string{
		"black", "white", "gray", "grey", "red", "orange", "yellow",
		"green", "blue", "navy", "purple", "pink", "brown", "beige",
		"cream", "khaki", "burgundy",
	}
	knownPatterns = []string{
		"polka dot", "striped", "stripes", "plaid", "checked", "checkered",
		"floral", "paisley", "camouflage", "herringbone", "houndstooth",
		"solid",
	}
	knownMaterials = []string{
		"cotton", "wool", "linen", "silk", "leather", "denim", "polyester",
		"nylon", "viscose", "cashmere", "suede", "velvet", "corduroy",
	}
)

// fallbackAttributes recovers what it can from raw model text with a
// keyword scan over the known vocabularies. It always returns a usable
// (possibly empty) map.
func fallbackAttributes(raw string) (map[string]string, map[string]float64) {
	text := strings.ToLower(raw)
	attrs := make(map[string]string)
	conf := make(map[string]float64)

	scan := func(field string, vocabulary []string) {
		for _, term := range vocabulary {
			if strings.Contains(text, term) {
				attrs[field] = term
				conf[field] = fallbackConfidence
				return
			}
		}
	}

	scan(FieldCategory, knownCategories)
	scan(FieldColor, knownColors)
	scan(FieldPattern, knownPatterns)
	scan(FieldMaterial, knownMaterials)

	return attrs, conf
}

var (
	tagSizePattern  = regexp.MustCompile(`\b(XXS|XS|S|M|L|XL|XXL|XXXL|\d{2,3})\b`)
	tagPricePattern = regexp.MustCompile(`\d+(?:[.,]\d{2})?\s*(?:€|\$|£|eur|usd)`)
)

// fallbackTagFields recovers size and price from raw label text when the
// model reply is not parseable as the tag schema.
func fallbackTagFields(raw string) *TagFields {
	fields := &TagFields{}
	if m := tagSizePattern.FindString(raw); m != "" {
		fields.Size = m
	}
	if m := tagPricePattern.FindString(strings.ToLower(raw)); m != "" {
		fields.Price = strings.TrimSpace(m)
	}
	for _, material := range knownMaterials {
		if strings.Contains(strings.ToLower(raw), material) {
			fields.Material = material
			break
		}
	}
	return fields
}
