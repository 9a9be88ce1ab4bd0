package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"plain object", `{"a": 1}`, `{"a": 1}`, false},
		{"markdown fenced", "```json\n{\"a\": 1}\n```", `{"a": 1}`, false},
		{"surrounding prose", `Sure! Here you go: {"a": 1} Hope that helps.`, `{"a": 1}`, false},
		{"nested braces", `{"a": {"b": 2}}`, `{"a": {"b": 2}}`, false},
		{"no object", "sorry, I cannot do that", "", true},
		{"reversed braces", "} nothing {", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSONObject(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAnalyzeResponse(t *testing.T) {
	raw := "```json\n" + `{
		"category": "shirt",
		"brand": "Marimekko",
		"color": "blue",
		"material": "cotton",
		"pattern": "striped",
		"confidence": {"category": 0.95, "brand": 0.8, "color": 0.9}
	}` + "\n```"

	resp, err := parseAnalyzeResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, "shirt", resp.Category)
	assert.Equal(t, "Marimekko", resp.Brand)
	assert.InDelta(t, 0.95, resp.Confidence["category"], 1e-9)
}

func TestParseAnalyzeResponseBadJSON(t *testing.T) {
	_, err := parseAnalyzeResponse(`{"category": `)
	assert.Error(t, err)
}

func TestAttributeMaps(t *testing.T) {
	resp := &analyzeResponse{
		Category: "jeans",
		Brand:    "  Levi's  ",
		Color:    "",
		Size:     "32",
		Confidence: map[string]float64{
			FieldCategory: 0.9,
			FieldBrand:    1.7,  // clamped to 1
			FieldSize:     -0.3, // clamped to 0
		},
	}

	attrs, conf := resp.attributeMaps()

	assert.Equal(t, "jeans", attrs[FieldCategory])
	assert.Equal(t, "Levi's", attrs[FieldBrand], "values are trimmed")
	assert.NotContains(t, attrs, FieldColor, "empty fields are dropped")
	assert.InDelta(t, 0.9, conf[FieldCategory], 1e-9)
	assert.InDelta(t, 1.0, conf[FieldBrand], 1e-9)
	assert.InDelta(t, 0.0, conf[FieldSize], 1e-9)
}

func TestFallbackAttributes(t *testing.T) {
	attrs, conf := fallbackAttributes(
		"This looks like a striped blue cotton t-shirt in good condition.")

	assert.Equal(t, "t-shirt", attrs[FieldCategory])
	assert.Equal(t, "blue", attrs[FieldColor])
	assert.Equal(t, "striped", attrs[FieldPattern])
	assert.Equal(t, "cotton", attrs[FieldMaterial])
	for field := range attrs {
		assert.InDelta(t, fallbackConfidence, conf[field], 1e-9)
	}
}

func TestFallbackAttributesPrefersSpecificTerm(t *testing.T) {
	// "t-shirt" contains "shirt"; the multi-word term must win
	attrs, _ := fallbackAttributes("a plain t-shirt")
	assert.Equal(t, "t-shirt", attrs[FieldCategory])
}

func TestFallbackAttributesNoMatches(t *testing.T) {
	attrs, conf := fallbackAttributes("I am unable to analyze this photograph.")
	assert.Empty(t, attrs)
	assert.Empty(t, conf)
}

func TestFallbackTagFields(t *testing.T) {
	fields := fallbackTagFields("H&M  Size: M  100% Cotton  19.99 €")

	assert.Equal(t, "M", fields.Size)
	assert.Equal(t, "19.99 €", fields.Price)
	assert.Equal(t, "cotton", fields.Material)
	assert.Empty(t, fields.Brand)
}

func TestFallbackTagFieldsNumericSize(t *testing.T) {
	fields := fallbackTagFields("EUR 42 wool blend")
	assert.Equal(t, "42", fields.Size)
	assert.Equal(t, "wool", fields.Material)
}

func TestFallbackTagFieldsEmpty(t *testing.T) {
	fields := fallbackTagFields("illegible")
	assert.Empty(t, fields.Size)
	assert.Empty(t, fields.Price)
	assert.Empty(t, fields.Material)
}

func TestTemplatedDescription(t *testing.T) {
	tests := []struct {
		name  string
		attrs map[string]string
		want  string
	}{
		{
			"full attributes",
			map[string]string{
				FieldCategory: "shirt",
				FieldColor:    "blue",
				FieldMaterial: "cotton",
				FieldBrand:    "Marimekko",
			},
			"A blue cotton shirt by Marimekko.",
		},
		{
			"category only",
			map[string]string{FieldCategory: "jeans"},
			"A jeans.",
		},
		{
			"no attributes at all",
			map[string]string{},
			"A clothing item.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, templatedDescription(tt.attrs))
		})
	}
}
