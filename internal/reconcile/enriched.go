package reconcile

// Enriched table column orders. The VRBO_ID column is omitted from the VRBO
// layout when the registry has no VRBO_ID column.
var (
	AirbnbEnrichedColumns = []string{ColCode, ColVRBOID, ColQBO, ColCleaning, ColTaxLocation, "Type", "Listing", "Amount"}
	VRBOEnrichedColumns   = []string{ColCode, ColListingBNB, ColQBO, ColCleaning, ColTaxLocation, ColVRBOID, "Payout"}
)

// EnrichedTable is the matcher output for one source.
type EnrichedTable struct {
	Source  Source
	Columns []string
	Rows    []EnrichedBooking
}

func newEnrichedTable(source Source, hasPropertyIDB bool, rows []EnrichedBooking) *EnrichedTable {
	var cols []string
	switch source {
	case SourceAirbnb:
		cols = AirbnbEnrichedColumns
	default:
		cols = VRBOEnrichedColumns
		if !hasPropertyIDB {
			cols = withoutColumn(cols, ColVRBOID)
		}
	}
	return &EnrichedTable{Source: source, Columns: cols, Rows: rows}
}

// Len returns the number of enriched rows.
func (t *EnrichedTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Resolved returns the rows that carry a registry Code.
func (t *EnrichedTable) Resolved() []EnrichedBooking {
	out := make([]EnrichedBooking, 0, len(t.Rows))
	for _, b := range t.Rows {
		if b.Resolved() {
			out = append(out, b)
		}
	}
	return out
}

// Record renders row i in Columns order.
func (t *EnrichedTable) Record(i int) []string {
	b := t.Rows[i]
	rec := make([]string, len(t.Columns))
	for j, c := range t.Columns {
		switch c {
		case ColCode:
			rec[j] = b.Code
		case ColVRBOID:
			rec[j] = b.Property.PropertyIDB
		case ColListingBNB:
			rec[j] = b.Property.ListingLabelA
		case ColQBO:
			rec[j] = b.Property.AccountKey
		case ColCleaning:
			rec[j] = b.Cleaning
		case ColTaxLocation:
			rec[j] = b.Property.TaxLocation
		case "Type":
			rec[j] = b.RecordType
		case "Listing":
			rec[j] = b.Listing
		case "Amount", "Payout":
			rec[j] = b.Amount
		}
	}
	return rec
}

func withoutColumn(cols []string, drop string) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if c != drop {
			out = append(out, c)
		}
	}
	return out
}
