package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	"github.com/dvloznov/rental-tax/internal/logger"
)

// DefaultSummariesTable is used when no table name is configured.
const DefaultSummariesTable = "tax_summaries"

// EnsureSummaryTableWithClient creates datasetID.tableID with the SummaryRow
// schema if it does not exist yet. It reports whether the table was created.
func EnsureSummaryTableWithClient(ctx context.Context, client *bigquery.Client, datasetID, tableID string) (bool, error) {
	log := logger.FromContext(ctx)

	table := client.Dataset(datasetID).Table(tableID)
	if _, err := table.Metadata(ctx); err == nil {
		log.Debug().Str("dataset", datasetID).Str("table", tableID).Msg("Summary table already exists")
		return false, nil
	} else if !isNotFound(err) {
		return false, fmt.Errorf("EnsureSummaryTable: reading metadata: %w", err)
	}

	schema, err := bigquery.InferSchema(SummaryRow{})
	if err != nil {
		return false, fmt.Errorf("EnsureSummaryTable: inferring schema: %w", err)
	}

	meta := &bigquery.TableMetadata{
		Name:        tableID,
		Description: "Per-property short-term rental tax summaries, one row per property per run.",
		Schema:      schema,
		TimePartitioning: &bigquery.TimePartitioning{
			Field: "generated_ts",
		},
		Clustering: &bigquery.Clustering{
			Fields: []string{"tax_year", "code"},
		},
	}
	if err := table.Create(ctx, meta); err != nil {
		return false, fmt.Errorf("EnsureSummaryTable: creating table: %w", err)
	}

	log.Info().Str("dataset", datasetID).Str("table", tableID).Msg("Created summary table")
	return true, nil
}

// InsertSummariesWithClient streams rows into datasetID.tableID using the
// provided BigQuery client.
func InsertSummariesWithClient(ctx context.Context, client *bigquery.Client, datasetID, tableID string, rows []*SummaryRow) error {
	if len(rows) == 0 {
		return nil
	}

	inserter := client.Dataset(datasetID).Table(tableID).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertSummaries: inserting rows: %w", err)
	}

	return nil
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
