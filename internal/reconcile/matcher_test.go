package reconcile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/rental-tax/internal/table"
)

var registryHeader = []string{"Code", "ListingBNB", "VRBO_ID", "QBO", "Cleaning", "Tax_Location"}

func testRegistry(t *testing.T, rows ...[]string) *Registry {
	t.Helper()
	reg, err := NewRegistry(table.New("registry", registryHeader, rows), DuplicateReject)
	require.NoError(t, err)
	return reg
}

func airbnbTable(rows ...[]string) *table.Table {
	return table.New("airbnb", []string{"Code", "Customer", "Type", "Listing", "Amount"}, rows)
}

func vrboTable(rows ...[]string) *table.Table {
	return table.New("vrbo", []string{"Code", "Customer", "Property ID", "Payout"}, rows)
}

func TestMatch_JoinOnCode(t *testing.T) {
	reg := testRegistry(t,
		[]string{"P1", "Beach House", "V-100", "Smith", "75", "Destin"},
		[]string{"P2", "Lake Cabin", "V-200", "Jones", "60", "Gulf Shores"},
	)

	res, err := NewMatcher(reg).Match(AirbnbSpec, airbnbTable(
		[]string{"P2", "Jones", "Reservation", "Lake Cabin", "400"},
		[]string{"P1", "Smith", "Reservation", "Beach House", "500"},
	))
	require.NoError(t, err)
	require.Equal(t, 2, res.Table.Len())
	assert.Empty(t, res.Unresolved)

	for _, b := range res.Table.Rows {
		want, ok := reg.ByCode(b.SourceCode)
		require.True(t, ok)
		assert.Equal(t, want, b.Property, "registry-derived fields for %s", b.SourceCode)
		assert.Equal(t, ResolvedByCode, b.Resolution)
		assert.Equal(t, want.CleaningBaseline, b.Cleaning)
	}
}

func TestMatch_FiltersRecordTypes(t *testing.T) {
	reg := testRegistry(t, []string{"P1", "Beach House", "", "Smith", "75", "Destin"})

	res, err := NewMatcher(reg).Match(AirbnbSpec, airbnbTable(
		[]string{"P1", "Smith", "Reservation", "Beach House", "500"},
		[]string{"P1", "Smith", "Payout", "Beach House", "-500"},
		[]string{"P1", "Smith", "Adjustment", "Beach House", "-20"},
		[]string{"P1", "Smith", "Resolution Adjustment", "Beach House", "10"},
	))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Table.Len())
	assert.Equal(t, 2, res.Filtered)
	assert.Equal(t, RecordTypeReservation, res.Table.Rows[0].RecordType)
	assert.Equal(t, RecordTypeAdjustment, res.Table.Rows[1].RecordType)
}

func TestMatch_ListingFallbackBeatsAccount(t *testing.T) {
	reg := testRegistry(t,
		[]string{"P1", "Beach House", "", "Smith", "75", "Destin"},
		[]string{"P2", "Lake Cabin", "", "Jones", "60", "Gulf Shores"},
	)

	// Listing points at P1, customer points at P2.
	res, err := NewMatcher(reg).Match(AirbnbSpec, airbnbTable(
		[]string{"HMX9", "Jones", "Reservation", "Beach House", "300"},
	))
	require.NoError(t, err)

	b := res.Table.Rows[0]
	assert.Equal(t, "P1", b.Code)
	assert.Equal(t, ResolvedByListing, b.Resolution)
	assert.Equal(t, "75", b.Cleaning)
	assert.Empty(t, res.Unresolved)
}

func TestMatch_AccountFallback(t *testing.T) {
	reg := testRegistry(t,
		[]string{"P1", "Beach House", "", "Smith", "75", "Destin"},
		[]string{"P2", "Lake Cabin", "", "Jones", "60", "Gulf Shores"},
	)

	res, err := NewMatcher(reg).Match(AirbnbSpec, airbnbTable(
		[]string{"HMX9", "Jones", "Reservation", "Renamed Cabin", "300"},
		[]string{"HMX9", "Jones", "Adjustment", "Renamed Cabin", "-15"},
	))
	require.NoError(t, err)

	for _, b := range res.Table.Rows {
		assert.Equal(t, "P2", b.Code)
		assert.Equal(t, ResolvedByAccount, b.Resolution)
	}
}

func TestMatch_AccountFallbackKeepsToItsCode(t *testing.T) {
	reg := testRegistry(t,
		[]string{"P1", "Beach House", "", "Smith", "75", "Destin"},
		[]string{"P2", "Lake Cabin", "", "Smith", "60", "Gulf Shores"},
	)

	// X1 only has the shared account, X2 has its own listing match.
	res, err := NewMatcher(reg).Match(AirbnbSpec, airbnbTable(
		[]string{"X1", "Smith", "Reservation", "Unknown Loft", "100"},
		[]string{"X2", "Smith", "Reservation", "Lake Cabin", "200"},
		[]string{"X2", "Smith", "Adjustment", "Lake Cabin", "-10"},
	))
	require.NoError(t, err)
	assert.Empty(t, res.Unresolved)

	assert.Equal(t, "P1", res.Table.Rows[0].Code)
	assert.Equal(t, ResolvedByAccount, res.Table.Rows[0].Resolution)
	for _, b := range res.Table.Rows[1:] {
		assert.Equal(t, "P2", b.Code)
		assert.Equal(t, ResolvedByListing, b.Resolution)
		assert.Equal(t, "60", b.Cleaning)
	}
}

func TestMatch_FallbackAppliesToRowsSharingTheKey(t *testing.T) {
	reg := testRegistry(t, []string{"P1", "Beach House", "", "Smith", "75", "Destin"})

	res, err := NewMatcher(reg).Match(AirbnbSpec, airbnbTable(
		[]string{"HMA1", "Other", "Reservation", "Beach House", "100"},
		[]string{"HMB2", "Someone", "Reservation", "Beach House", "200"},
	))
	require.NoError(t, err)

	assert.Equal(t, "P1", res.Table.Rows[0].Code)
	assert.Equal(t, "P1", res.Table.Rows[1].Code)
	assert.Empty(t, res.Unresolved)
}

func TestMatch_Residual(t *testing.T) {
	reg := testRegistry(t, []string{"P1", "Beach House", "", "Smith", "75", "Destin"})

	res, err := NewMatcher(reg).Match(AirbnbSpec, airbnbTable(
		[]string{"P1", "Smith", "Reservation", "Beach House", "500"},
		[]string{"ZZZ", "Nobody", "Reservation", "Unknown Loft", "90"},
		[]string{"ZZZ", "Nobody", "Adjustment", "Unknown Loft", "-5"},
		[]string{"", "", "Reservation", "", "10"},
	))
	require.NoError(t, err)

	assert.Equal(t, []string{"ZZZ", ""}, res.UnresolvedCodes())
	assert.Equal(t, 2, res.Unresolved[0].Rows)
	assert.Equal(t, "Unknown Loft", res.Unresolved[0].Listing)
	assert.Equal(t, "", res.Table.Rows[1].Code)
	assert.Equal(t, "", res.Table.Rows[3].Code)
	assert.Equal(t, ResolvedNone, res.Table.Rows[1].Resolution)
	assert.False(t, res.Table.Rows[1].Resolved())
	assert.Len(t, res.Table.Resolved(), 1)
}

func TestMatch_VRBOFallbackByPropertyID(t *testing.T) {
	reg := testRegistry(t,
		[]string{"P1", "Beach House", "V-100", "Smith", "75", "Destin"},
		[]string{"P2", "Lake Cabin", "V-200", "Jones", "60", "Gulf Shores"},
	)

	res, err := NewMatcher(reg).Match(VRBOSpec, vrboTable(
		[]string{"HA-77", "Smith", "V-200", "800"},
	))
	require.NoError(t, err)

	b := res.Table.Rows[0]
	assert.Equal(t, "P2", b.Code)
	assert.Equal(t, ResolvedByListing, b.Resolution)
	assert.Equal(t, VRBOEnrichedColumns, res.Table.Columns)
	assert.Equal(t, []string{"P2", "Lake Cabin", "Jones", "60", "Gulf Shores", "V-200", "800"}, res.Table.Record(0))
}

func TestMatch_VRBOWithoutPropertyIDColumn(t *testing.T) {
	header := []string{"Code", "ListingBNB", "QBO", "Cleaning", "Tax_Location"}
	reg, err := NewRegistry(table.New("registry", header, [][]string{
		{"P1", "Beach House", "Smith", "75", "Destin"},
	}), DuplicateReject)
	require.NoError(t, err)
	require.False(t, reg.HasPropertyIDB)

	res, err := NewMatcher(reg).Match(VRBOSpec, vrboTable(
		[]string{"HA-77", "Smith", "V-100", "800"},
	))
	require.NoError(t, err)

	assert.Equal(t, "P1", res.Table.Rows[0].Code)
	assert.Equal(t, ResolvedByAccount, res.Table.Rows[0].Resolution)
	assert.NotContains(t, res.Table.Columns, ColVRBOID)
}

func TestMatch_BookingCleaningOverridesBaseline(t *testing.T) {
	reg := testRegistry(t, []string{"P1", "Beach House", "", "Smith", "75", "Destin"})
	bookings := table.New("airbnb",
		[]string{"Code", "Customer", "Type", "Listing", "Amount", "Cleaning"},
		[][]string{
			{"P1", "Smith", "Reservation", "Beach House", "500", "90"},
			{"P1", "Smith", "Reservation", "Beach House", "500", ""},
		})

	res, err := NewMatcher(reg).Match(AirbnbSpec, bookings)
	require.NoError(t, err)

	assert.Equal(t, "90", res.Table.Rows[0].Cleaning)
	assert.Equal(t, "75", res.Table.Rows[1].Cleaning)
}

func TestMatch_MissingColumn(t *testing.T) {
	reg := testRegistry(t)
	bookings := table.New("airbnb", []string{"Code", "Customer", "Listing", "Amount"}, nil)

	_, err := NewMatcher(reg).Match(AirbnbSpec, bookings)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingColumn))
	var mce *MissingColumnError
	require.True(t, errors.As(err, &mce))
	assert.Equal(t, "airbnb", mce.Table)
	assert.Equal(t, "Type", mce.Column)
}
