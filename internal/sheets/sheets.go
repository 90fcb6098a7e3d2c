package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Row is one exported line item
type Row struct {
	Store    string
	Name     string
	Price    int // Price in cents
	Category string
	IsShared bool
}

// Exporter defines the interface for the spreadsheet export sink.
// Append is invoked once per line item, in list order; partial exports
// are possible and are not rolled back.
type Exporter interface {
	Append(ctx context.Context, row Row) error
}

// SheetsExporter implements Exporter against the Google Sheets API
type SheetsExporter struct {
	svc           *sheets.Service
	spreadsheetID string
	writeRange    string
}

// NewSheetsExporter creates a SheetsExporter appending to the given
// spreadsheet range, authenticated with a service-account key file
func NewSheetsExporter(ctx context.Context, credentialsFile, spreadsheetID, writeRange string) (*SheetsExporter, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}
	if writeRange == "" {
		writeRange = "Expenses!A:E"
	}

	svc, err := sheets.NewService(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	return &SheetsExporter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		writeRange:    writeRange,
	}, nil
}

// Append appends one row to the configured range
func (e *SheetsExporter) Append(ctx context.Context, row Row) error {
	shared := "private"
	if row.IsShared {
		shared = "shared"
	}

	values := &sheets.ValueRange{
		Values: [][]interface{}{{
			row.Store,
			row.Name,
			float64(row.Price) / 100,
			row.Category,
			shared,
		}},
	}

	_, err := e.svc.Spreadsheets.Values.
		Append(e.spreadsheetID, e.writeRange, values).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("appending row: %w", err)
	}
	return nil
}
