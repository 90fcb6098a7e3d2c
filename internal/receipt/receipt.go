package receipt

import "time"

// Status is the lifecycle state of a receipt record.
type Status string

const (
	StatusReceived      Status = "RECEIVED"
	StatusProcessing    Status = "PROCESSING"
	StatusAnalyzedAI    Status = "ANALYZED_AI"
	StatusCategorized   Status = "CATEGORIZED"
	StatusSavedToSheets Status = "SAVED_TO_SHEETS"
	StatusCompleted     Status = "COMPLETED"
	StatusError         Status = "ERROR"
)

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// StatusEntry is one line of a record's append-only status history.
type StatusEntry struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details,omitempty"`
}

// LineItem represents one product on a receipt
type LineItem struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Price    int    `json:"price"` // Price in cents
	IsShared bool   `json:"is_shared"`
}

// Usage holds token accounting from a single AI analysis call
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Record represents one receipt submission and its processing state
type Record struct {
	ID            string        `json:"id"`
	SourcePath    string        `json:"source_path,omitempty"` // empty for manual entry
	Comments      string        `json:"comments,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	Store         string        `json:"store,omitempty"`
	Products      []LineItem    `json:"products"`
	TotalAmount   int           `json:"total_amount"` // Amount in cents
	Usage         Usage         `json:"usage"`
	Status        Status        `json:"status"`
	StatusHistory []StatusEntry `json:"status_history"`
}

// RecomputeTotal derives TotalAmount from the current product list.
// Call it after every mutation of Products.
func (r *Record) RecomputeTotal() {
	total := 0
	for _, p := range r.Products {
		total += p.Price
	}
	r.TotalAmount = total
}
