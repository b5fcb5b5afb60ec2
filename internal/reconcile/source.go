package reconcile

import "github.com/dvloznov/rental-tax/internal/table"

// Source identifies a booking platform.
type Source string

const (
	SourceAirbnb Source = "airbnb"
	SourceVRBO   Source = "vrbo"
)

// Airbnb record types kept by the matcher.
const (
	RecordTypeReservation = "Reservation"
	RecordTypeAdjustment  = "Adjustment"
)

// SourceSpec describes where a booking source keeps the fields the matcher
// needs and which registry field its listing identifier corresponds to.
type SourceSpec struct {
	Source Source

	CodeColumn    string
	ListingColumn string
	AccountColumn string
	AmountColumn  string

	// TypeColumn is empty for sources without record types.
	TypeColumn  string
	AcceptTypes []string

	// CleaningColumn is optional on the booking table; when absent or blank
	// the registry CleaningBaseline is used.
	CleaningColumn string

	listingLookup func(*Registry, string) (Property, bool)
}

// AirbnbSpec matches Airbnb listings by the registry ListingBNB column.
var AirbnbSpec = SourceSpec{
	Source:         SourceAirbnb,
	CodeColumn:     "Code",
	ListingColumn:  "Listing",
	AccountColumn:  "Customer",
	AmountColumn:   "Amount",
	TypeColumn:     "Type",
	AcceptTypes:    []string{RecordTypeReservation, RecordTypeAdjustment},
	CleaningColumn: "Cleaning",
	listingLookup:  (*Registry).ByListingA,
}

// VRBOSpec matches VRBO properties by the registry VRBO_ID column.
var VRBOSpec = SourceSpec{
	Source:         SourceVRBO,
	CodeColumn:     "Code",
	ListingColumn:  "Property ID",
	AccountColumn:  "Customer",
	AmountColumn:   "Payout",
	CleaningColumn: "Cleaning",
	listingLookup:  (*Registry).ByPropertyIDB,
}

// RequiredColumns lists the booking columns that must be present.
func (s SourceSpec) RequiredColumns() []string {
	cols := []string{s.CodeColumn, s.AccountColumn}
	if s.TypeColumn != "" {
		cols = append(cols, s.TypeColumn)
	}
	return append(cols, s.ListingColumn, s.AmountColumn)
}

// Validate checks the booking table against RequiredColumns.
func (s SourceSpec) Validate(t *table.Table) error {
	return requireColumns(t.Name, t.Missing(s.RequiredColumns()...))
}

func (s SourceSpec) accepts(recordType string) bool {
	if s.TypeColumn == "" {
		return true
	}
	for _, t := range s.AcceptTypes {
		if recordType == t {
			return true
		}
	}
	return false
}
