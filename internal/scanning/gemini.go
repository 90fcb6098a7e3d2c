package scanning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/mjaros/paragon-bot/internal/category"
)

const analysisPromptTemplate = `You are analyzing a photo of a shop receipt. Read all text on the
receipt and extract the following:

1. **Store name**: the merchant name, usually the largest text at the top.

2. **Line items**: every purchased product with its final price (after
   per-line discounts). Assign each product one category id from this list:

%s

3. **Total amount**: the grand total of the receipt.

%sReturn ONLY valid JSON in this exact format:
{
  "store": "Store Name",
  "items": [
    {"name": "Product name", "price": 0.00, "category": "XXX"}
  ],
  "total": 0.00
}

Important:
- Prices are numbers in the receipt currency, not strings
- The category field must be one of the listed 3-letter ids
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// Gemini implements the Analyzer interface using Google Gemini
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini Analyzer instance
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)

	return &Gemini{
		client: client,
		model:  model,
	}, nil
}

// buildPrompt renders the analysis prompt with the category list and
// the user's optional comment
func buildPrompt(comment string, categories []category.Category) string {
	var list strings.Builder
	for _, c := range categories {
		fmt.Fprintf(&list, "   %s - %s (%s)\n", c.ID, c.Name, c.Description)
	}

	commentSection := ""
	if strings.TrimSpace(comment) != "" {
		commentSection = fmt.Sprintf("The user added this note about the purchase; use it to resolve\nambiguous products: %q\n\n", comment)
	}

	return fmt.Sprintf(analysisPromptTemplate, strings.TrimRight(list.String(), "\n"), commentSection)
}

// Analyze extracts store, line items, total and token usage from a
// receipt image. The image must already be PNG-normalized.
func (g *Gemini) Analyze(ctx context.Context, imageData []byte, comment string, categories []category.Category) (*Analysis, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	parts := []genai.Part{
		genai.ImageData("png", imageData),
		genai.Text(buildPrompt(comment, categories)),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	analysis, err := parseAnalysisJSON(responseText.String())
	if err != nil {
		return nil, fmt.Errorf("parsing analysis: %w", err)
	}

	if meta := resp.UsageMetadata; meta != nil {
		analysis.Usage = Usage{
			InputTokens:  int(meta.PromptTokenCount),
			OutputTokens: int(meta.CandidatesTokenCount),
			TotalTokens:  int(meta.TotalTokenCount),
		}
	}

	return analysis, nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
