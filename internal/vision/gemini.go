package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lithammer/dedent"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const (
	defaultModel     = "gemini-3-flash-preview"
	defaultLiteModel = "gemini-2.5-flash-lite"
	defaultTimeout   = 60 * time.Second

	// maxImagesPerCall bounds the number of photos sent in one request.
	maxImagesPerCall = 5
)

// Gemini pricing (per million tokens)
const (
	inputPricePerMillion      = 0.50
	outputPricePerMillion     = 3.00
	liteInputPricePerMillion  = 0.075
	liteOutputPricePerMillion = 0.30
)

var analyzePrompt = dedent.Dedent(`
	Analyze these photos of a single garment and extract its attributes.

	Respond in JSON format with these fields (use an empty string when a value
	cannot be determined, do not guess):
	- category: the garment type (e.g. "shirt", "jeans", "jacket")
	- brand: brand name if visible
	- color: dominant color
	- size: labeled size if visible (e.g. "M", "42")
	- material: main fabric if identifiable
	- pattern: surface pattern (e.g. "solid", "striped", "floral")
	- style: overall style (e.g. "casual", "formal", "sportswear")
	- condition: apparent condition (e.g. "new", "good", "worn")
	- price_range: rough secondhand price range in euros (e.g. "10-20")
	- confidence: object mapping each non-empty field above to a confidence
	  score between 0 and 1

	Example response:
	{"category": "shirt", "brand": "Marimekko", "color": "blue", "size": "M", "material": "cotton", "pattern": "striped", "style": "casual", "condition": "good", "price_range": "15-25", "confidence": {"category": 0.95, "brand": 0.8, "color": 0.9, "size": 0.7, "material": 0.6, "pattern": 0.9, "style": 0.7, "condition": 0.6, "price_range": 0.5}}

	Respond ONLY with the JSON object, no markdown or other text.`)

var tagPrompt = dedent.Dedent(`
	This photo shows a clothing label or price tag. Extract the printed
	information.

	Respond in JSON format with these fields (empty string when not visible):
	- brand
	- size
	- price (as printed, including currency)
	- material (fabric composition)
	- care (washing instructions, short)
	- model_number

	Respond ONLY with the JSON object, no markdown or other text.`)

var describePrompt = dedent.Dedent(`
	Write a short, natural two-sentence description of a garment for a
	personal wardrobe catalog, based on these attributes:

	%s

	Respond with ONLY the description text, no quotes or other formatting.`)

// Config configures the Gemini-backed analyzer. It is built once at process
// start and passed in explicitly.
type Config struct {
	APIKey    string
	Model     string        // vision model; defaults to gemini-3-flash-preview
	LiteModel string        // cheap text model; defaults to gemini-2.5-flash-lite
	Timeout   time.Duration // per-call timeout; defaults to 60s
}

// GeminiAnalyzer implements Analyzer using Google's Gemini API.
type GeminiAnalyzer struct {
	client    *genai.Client
	model     string
	liteModel string
	timeout   time.Duration
}

var _ Analyzer = (*GeminiAnalyzer)(nil)

// NewGeminiAnalyzer creates a Gemini-based analyzer from explicit config.
func NewGeminiAnalyzer(ctx context.Context, cfg Config) (*GeminiAnalyzer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	a := &GeminiAnalyzer{
		client:    client,
		model:     cfg.Model,
		liteModel: cfg.LiteModel,
		timeout:   cfg.Timeout,
	}
	if a.model == "" {
		a.model = defaultModel
	}
	if a.liteModel == "" {
		a.liteModel = defaultLiteModel
	}
	if a.timeout <= 0 {
		a.timeout = defaultTimeout
	}
	return a, nil
}

// analyzeResponse is the attribute schema the model is asked for.
type analyzeResponse struct {
	Category   string             `json:"category"`
	Brand      string             `json:"brand"`
	Color      string             `json:"color"`
	Size       string             `json:"size"`
	Material   string             `json:"material"`
	Pattern    string             `json:"pattern"`
	Style      string             `json:"style"`
	Condition  string             `json:"condition"`
	PriceRange string             `json:"price_range"`
	Confidence map[string]float64 `json:"confidence"`
}

// Analyze sends the item's photos to the vision model and returns the
// extracted attribute map. A reply that cannot be parsed as the expected
// schema degrades to a keyword-scan fallback; only a failed external call
// or an empty image list is an error.
func (g *GeminiAnalyzer) Analyze(ctx context.Context, images [][]byte) (*Analysis, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("no images provided")
	}
	if len(images) > maxImagesPerCall {
		images = images[:maxImagesPerCall]
	}

	parts := []*genai.Part{genai.NewPartFromText(analyzePrompt)}
	for _, data := range images {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{Data: data, MIMEType: "image/jpeg"},
		})
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	result, err := g.client.Models.GenerateContent(callCtx, g.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from Gemini")
	}
	duration := time.Since(start)

	raw := result.Text()
	cost := usageCost(result, inputPricePerMillion, outputPricePerMillion)

	analysis := &Analysis{
		RawResponse:   raw,
		Duration:      duration,
		EstimatedCost: cost,
	}

	parsed, err := parseAnalyzeResponse(raw)
	if err != nil {
		// Degrade to the deterministic keyword scan; the pipeline always
		// gets some attribute map back.
		log.Warn().Err(err).Msg("unparseable vision reply, using keyword fallback")
		analysis.Attributes, analysis.Confidence = fallbackAttributes(raw)
	} else {
		analysis.Attributes, analysis.Confidence = parsed.attributeMaps()
	}

	logUsage(result, g.model, "vision analyze call", cost,
		func(e *zerolog.Event) { e.Int("imageCount", len(images)) })

	return analysis, nil
}

// ExtractTagFields reads label details from a single tag photo.
func (g *GeminiAnalyzer) ExtractTagFields(ctx context.Context, image []byte) (*TagFields, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("no image provided")
	}

	parts := []*genai.Part{
		genai.NewPartFromText(tagPrompt),
		{InlineData: &genai.Blob{Data: image, MIMEType: "image/jpeg"}},
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	result, err := g.client.Models.GenerateContent(callCtx, g.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from Gemini")
	}

	raw := result.Text()
	cost := usageCost(result, inputPricePerMillion, outputPricePerMillion)
	logUsage(result, g.model, "tag extraction call", cost, nil)

	jsonStr, err := extractJSONObject(raw)
	if err != nil {
		return fallbackTagFields(raw), nil
	}
	var fields TagFields
	if err := json.Unmarshal([]byte(jsonStr), &fields); err != nil {
		return fallbackTagFields(raw), nil
	}
	return &fields, nil
}

// Describe generates a short item summary. It never fails: model errors
// fall back to a templated concatenation of the attributes.
func (g *GeminiAnalyzer) Describe(ctx context.Context, attrs map[string]string) string {
	var lines []string
	for _, field := range []string{FieldBrand, FieldCategory, FieldColor, FieldMaterial, FieldPattern, FieldStyle, FieldCondition} {
		if v := attrs[field]; v != "" {
			lines = append(lines, fmt.Sprintf("- %s: %s", field, v))
		}
	}
	if len(lines) == 0 {
		return templatedDescription(attrs)
	}

	prompt := fmt.Sprintf(describePrompt, strings.Join(lines, "\n"))
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(prompt)}, genai.RoleUser),
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	result, err := g.client.Models.GenerateContent(callCtx, g.liteModel, contents, nil)
	if err != nil {
		log.Warn().Err(err).Msg("description generation failed, using template")
		return templatedDescription(attrs)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return templatedDescription(attrs)
	}

	text := strings.TrimSpace(result.Text())
	text = strings.TrimPrefix(text, "```text")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	if text == "" {
		return templatedDescription(attrs)
	}

	cost := usageCost(result, liteInputPricePerMillion, liteOutputPricePerMillion)
	logUsage(result, g.liteModel, "description llm call", cost, nil)

	return text
}

// templatedDescription builds a plain description from whatever attributes
// are present, e.g. "A blue cotton shirt by Marimekko."
func templatedDescription(attrs map[string]string) string {
	noun := attrs[FieldCategory]
	if noun == "" {
		noun = "clothing item"
	}
	var sb strings.Builder
	sb.WriteString("A ")
	for _, field := range []string{FieldColor, FieldPattern, FieldMaterial} {
		if v := attrs[field]; v != "" {
			sb.WriteString(v)
			sb.WriteString(" ")
		}
	}
	sb.WriteString(noun)
	if brand := attrs[FieldBrand]; brand != "" {
		sb.WriteString(" by ")
		sb.WriteString(brand)
	}
	sb.WriteString(".")
	return sb.String()
}

func parseAnalyzeResponse(text string) (*analyzeResponse, error) {
	jsonStr, err := extractJSONObject(text)
	if err != nil {
		return nil, err
	}
	var resp analyzeResponse
	if err := json.Unmarshal([]byte(jsonStr), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w (response: %s)", err, jsonStr)
	}
	return &resp, nil
}

// attributeMaps converts the parsed schema into the attribute and confidence
// maps, dropping empty fields and clamping scores into [0,1].
func (r *analyzeResponse) attributeMaps() (map[string]string, map[string]float64) {
	attrs := make(map[string]string)
	conf := make(map[string]float64)

	set := func(field, value string) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		attrs[field] = value
		score := r.Confidence[field]
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		conf[field] = score
	}

	set(FieldCategory, r.Category)
	set(FieldBrand, r.Brand)
	set(FieldColor, r.Color)
	set(FieldSize, r.Size)
	set(FieldMaterial, r.Material)
	set(FieldPattern, r.Pattern)
	set(FieldStyle, r.Style)
	set(FieldCondition, r.Condition)
	set(FieldPriceRange, r.PriceRange)

	return attrs, conf
}

// extractJSONObject extracts a JSON object from text that may contain
// markdown code blocks or other formatting.
func extractJSONObject(text string) (string, error) {
	text = strings.TrimSpace(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON object found in response: %s", text)
	}
	return text[start : end+1], nil
}

func usageCost(result *genai.GenerateContentResponse, inputPrice, outputPrice float64) float64 {
	if result.UsageMetadata == nil {
		return 0
	}
	inputCost := float64(result.UsageMetadata.PromptTokenCount) / 1_000_000 * inputPrice
	outputCost := float64(result.UsageMetadata.CandidatesTokenCount) / 1_000_000 * outputPrice
	return inputCost + outputCost
}

func logUsage(result *genai.GenerateContentResponse, model, msg string, cost float64, extra func(*zerolog.Event)) {
	if result.UsageMetadata == nil {
		return
	}
	e := log.Info().
		Str("model", model).
		Int("inputTokens", int(result.UsageMetadata.PromptTokenCount)).
		Int("outputTokens", int(result.UsageMetadata.CandidatesTokenCount)).
		Float64("costUSD", cost)
	if extra != nil {
		extra(e)
	}
	e.Msg(msg)
}
