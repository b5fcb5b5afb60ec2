package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/rental-tax/internal/tax"
)

// BigQuerySummaryRepository stores tax summaries in a single BigQuery table.
// It holds a shared client to avoid creating a new connection for each
// operation.
type BigQuerySummaryRepository struct {
	client    *bigquery.Client
	datasetID string
	tableID   string
	now       func() time.Time
}

// NewBigQuerySummaryRepository creates a repository for project.dataset.table.
// An empty table name selects DefaultSummariesTable.
func NewBigQuerySummaryRepository(ctx context.Context, projectID, datasetID, tableID string) (*BigQuerySummaryRepository, error) {
	if projectID == "" || datasetID == "" {
		return nil, fmt.Errorf("NewBigQuerySummaryRepository: project and dataset are required")
	}
	if tableID == "" {
		tableID = DefaultSummariesTable
	}

	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQuerySummaryRepository: creating client: %w", err)
	}
	return &BigQuerySummaryRepository{
		client:    client,
		datasetID: datasetID,
		tableID:   tableID,
		now:       time.Now,
	}, nil
}

// Close closes the BigQuery client connection. This should be called when
// the repository is no longer needed to release resources.
func (r *BigQuerySummaryRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// EnsureTable creates the summary table if it is missing.
func (r *BigQuerySummaryRepository) EnsureTable(ctx context.Context) (bool, error) {
	return EnsureSummaryTableWithClient(ctx, r.client, r.datasetID, r.tableID)
}

// ExportSummaries inserts one row per summary, stamped with runID and taxYear.
func (r *BigQuerySummaryRepository) ExportSummaries(ctx context.Context, runID string, taxYear int, rows []tax.SummaryRow) error {
	return InsertSummariesWithClient(ctx, r.client, r.datasetID, r.tableID, NewSummaryRows(runID, taxYear, rows, r.now()))
}
