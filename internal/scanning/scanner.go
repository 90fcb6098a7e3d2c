package scanning

import (
	"context"

	"github.com/mjaros/paragon-bot/internal/category"
)

// Item is one product extracted from a receipt image
type Item struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
}

// Usage holds token accounting for one analysis call
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Analysis contains everything extracted from a receipt image
type Analysis struct {
	Store string  `json:"store"`
	Items []Item  `json:"items"`
	Total float64 `json:"total"`
	Usage Usage   `json:"-"`
}

// Analyzer defines the interface for receipt transcription
type Analyzer interface {
	// Analyze extracts store, line items and total from a receipt
	// image, steering categorization with the given category set and
	// the user's free-text comment
	Analyze(ctx context.Context, imageData []byte, comment string, categories []category.Category) (*Analysis, error)

	// Close releases analyzer resources
	Close() error
}
