package pipeline

import (
	"context"

	"github.com/dvloznov/rental-tax/internal/table"
	"github.com/dvloznov/rental-tax/internal/tax"
)

// DatasetLoader reads one sheet of a workbook into a table.
// This interface enables mocking and testing of input loading.
type DatasetLoader interface {
	Load(ctx context.Context, name, location, sheet string) (*table.Table, error)
}

// ReportWriter renders the summary rows to the output location.
type ReportWriter interface {
	WriteReport(ctx context.Context, location, sheet string, rows []tax.SummaryRow) error
}

// SummaryExporter stores the summary rows of a run in a warehouse.
type SummaryExporter interface {
	ExportSummaries(ctx context.Context, runID string, taxYear int, rows []tax.SummaryRow) error
}
