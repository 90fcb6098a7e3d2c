package scanning

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseAnalysisJSON parses the model's JSON response, tolerating
// markdown fences and prose around the object
func parseAnalysisJSON(text string) (*Analysis, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}

	text = text[startIdx : endIdx+1]

	var analysis Analysis
	if err := json.Unmarshal([]byte(text), &analysis); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	analysis.Store = strings.TrimSpace(analysis.Store)
	if analysis.Store == "" {
		analysis.Store = "Unknown Store"
	}

	// Drop unusable entries rather than failing the whole analysis
	items := analysis.Items[:0]
	for _, item := range analysis.Items {
		item.Name = strings.TrimSpace(item.Name)
		item.Category = strings.TrimSpace(item.Category)
		if item.Name == "" || item.Price < 0 {
			continue
		}
		items = append(items, item)
	}
	analysis.Items = items

	if len(analysis.Items) == 0 {
		return nil, fmt.Errorf("no line items in response")
	}

	if analysis.Total == 0 {
		for _, item := range analysis.Items {
			analysis.Total += item.Price
		}
	}

	return &analysis, nil
}
