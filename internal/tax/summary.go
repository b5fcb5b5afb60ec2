package tax

import "github.com/shopspring/decimal"

// Format tells the report emitter how to display a column.
type Format string

const (
	FormatText     Format = "text"
	FormatNumber   Format = "number"
	FormatCurrency Format = "currency"
)

// Column is a summary column header and its display format.
type Column struct {
	Name   string
	Format Format
}

// Columns is the fixed summary column order.
var Columns = []Column{
	{Name: "Code", Format: FormatText},
	{Name: "Listing", Format: FormatText},
	{Name: "VRBO_ID", Format: FormatText},
	{Name: "QBO", Format: FormatText},
	{Name: "Tax_Location", Format: FormatText},
	{Name: "Number_of_Cleanings", Format: FormatNumber},
	{Name: "Total_Cleaning", Format: FormatCurrency},
	{Name: "Total_Income", Format: FormatCurrency},
	{Name: "Total_Taxes", Format: FormatCurrency},
}

// Header returns the column names in order.
func Header() []string {
	names := make([]string, len(Columns))
	for i, c := range Columns {
		names[i] = c.Name
	}
	return names
}

// SummaryRow is the per-property tax summary.
type SummaryRow struct {
	Code        string
	Listing     string
	PropertyIDB string
	AccountKey  string
	TaxLocation string

	NumberOfCleanings int
	TotalCleaning     decimal.Decimal
	TotalIncome       decimal.Decimal
	TotalTaxes        decimal.Decimal
}

// Values returns the row in Columns order with currency as float64.
func (r SummaryRow) Values() []interface{} {
	return []interface{}{
		r.Code,
		r.Listing,
		r.PropertyIDB,
		r.AccountKey,
		r.TaxLocation,
		r.NumberOfCleanings,
		r.TotalCleaning.InexactFloat64(),
		r.TotalIncome.InexactFloat64(),
		r.TotalTaxes.InexactFloat64(),
	}
}

// empty reports whether every text field is blank and every number is zero.
func (r SummaryRow) empty() bool {
	return r.Code == "" && r.Listing == "" && r.PropertyIDB == "" &&
		r.AccountKey == "" && r.TaxLocation == "" &&
		r.NumberOfCleanings == 0 &&
		r.TotalCleaning.IsZero() && r.TotalIncome.IsZero() && r.TotalTaxes.IsZero()
}
