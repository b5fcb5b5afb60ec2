package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/rental-tax/internal/tax"
)

// SummaryRow is one exported per-property tax summary.
type SummaryRow struct {
	RunID   string `bigquery:"run_id"`   // REQUIRED
	TaxYear int64  `bigquery:"tax_year"` // REQUIRED

	Code        string              `bigquery:"code"`         // REQUIRED
	Listing     bigquery.NullString `bigquery:"listing"`      // NULLABLE
	VRBOID      bigquery.NullString `bigquery:"vrbo_id"`      // NULLABLE
	QBO         bigquery.NullString `bigquery:"qbo"`          // NULLABLE
	TaxLocation bigquery.NullString `bigquery:"tax_location"` // NULLABLE

	NumberOfCleanings int64    `bigquery:"number_of_cleanings"` // REQUIRED
	TotalCleaning     *big.Rat `bigquery:"total_cleaning"`      // REQUIRED NUMERIC
	TotalIncome       *big.Rat `bigquery:"total_income"`        // REQUIRED NUMERIC
	TotalTaxes        *big.Rat `bigquery:"total_taxes"`         // REQUIRED NUMERIC

	GeneratedTS time.Time `bigquery:"generated_ts"` // REQUIRED
}

// NewSummaryRows maps aggregator output to export rows stamped with the run.
func NewSummaryRows(runID string, taxYear int, rows []tax.SummaryRow, now time.Time) []*SummaryRow {
	out := make([]*SummaryRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, &SummaryRow{
			RunID:             runID,
			TaxYear:           int64(taxYear),
			Code:              r.Code,
			Listing:           nullString(r.Listing),
			VRBOID:            nullString(r.PropertyIDB),
			QBO:               nullString(r.AccountKey),
			TaxLocation:       nullString(r.TaxLocation),
			NumberOfCleanings: int64(r.NumberOfCleanings),
			TotalCleaning:     r.TotalCleaning.Rat(),
			TotalIncome:       r.TotalIncome.Rat(),
			TotalTaxes:        r.TotalTaxes.Rat(),
			GeneratedTS:       now.UTC(),
		})
	}
	return out
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}
