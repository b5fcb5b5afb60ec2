package sheets

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/dvloznov/rental-tax/internal/logger"
	"github.com/dvloznov/rental-tax/internal/tax"
)

// MockStorage is a mock implementation of gcs.StorageService.
type MockStorage struct {
	FetchFromGCSFunc func(ctx context.Context, gcsURI string) ([]byte, error)
	UploadBytesFunc  func(ctx context.Context, gcsURI string, data []byte, contentType string) error
}

func (m *MockStorage) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	if m.FetchFromGCSFunc != nil {
		return m.FetchFromGCSFunc(ctx, gcsURI)
	}
	return nil, errors.New("not implemented")
}

func (m *MockStorage) UploadBytes(ctx context.Context, gcsURI string, data []byte, contentType string) error {
	if m.UploadBytesFunc != nil {
		return m.UploadBytesFunc(ctx, gcsURI, data, contentType)
	}
	return errors.New("not implemented")
}

func sampleRows() []tax.SummaryRow {
	return []tax.SummaryRow{
		{
			Code:              "A1",
			Listing:           "Beach House",
			PropertyIDB:       "V-100",
			AccountKey:        "Acct-1",
			TaxLocation:       "County X",
			NumberOfCleanings: 1,
			TotalCleaning:     decimal.RequireFromString("50"),
			TotalIncome:       decimal.RequireFromString("480"),
			TotalTaxes:        decimal.RequireFromString("2.6784"),
		},
		{
			Code:              "B2",
			Listing:           "Cabin",
			AccountKey:        "Acct-2",
			NumberOfCleanings: 2,
			TotalCleaning:     decimal.RequireFromString("90"),
			TotalIncome:       decimal.RequireFromString("1000.5"),
			TotalTaxes:        decimal.RequireFromString("5.58279"),
		},
	}
}

func writeWorkbook(t *testing.T, path, sheet string, rows [][]interface{}) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName(f.GetSheetName(0), sheet))
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := r
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
}

func TestLoader_LocalNamedSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "airbnb.xlsx")
	writeWorkbook(t, path, "Bookings", [][]interface{}{
		{" Code ", "Listing", "Amount", "Type"},
		{"A1", "Beach House", 430, "Reservation"},
		{},
		{"A1", "Beach House", 50.25, "Adjustment"},
	})

	loader := NewLoader(nil)
	tbl, err := loader.Load(context.Background(), "airbnb", path, "Bookings")
	require.NoError(t, err)

	assert.Equal(t, "airbnb", tbl.Name)
	assert.Equal(t, []string{"Code", "Listing", "Amount", "Type"}, tbl.Columns)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "430", tbl.Value(0, "Amount"))
	assert.Equal(t, "50.25", tbl.Value(1, "Amount"))
	assert.Equal(t, "Adjustment", tbl.Value(1, "Type"))
}

func TestLoader_DefaultsToFirstSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.xlsx")
	writeWorkbook(t, path, "Properties", [][]interface{}{
		{"Code", "ListingBNB"},
		{"A1", "Beach House"},
	})

	tbl, err := NewLoader(nil).Load(context.Background(), "registry", path, "")
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())
}

func TestLoader_Errors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vrbo.xlsx")
	writeWorkbook(t, path, "Payouts", [][]interface{}{{"Code"}})

	loader := NewLoader(nil)
	ctx := context.Background()

	_, err := loader.Load(ctx, "vrbo", path, "Missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no sheet "Missing"`)

	_, err = loader.Load(ctx, "vrbo", filepath.Join(t.TempDir(), "absent.xlsx"), "")
	assert.Error(t, err)

	_, err = loader.Load(ctx, "vrbo", "gs://bucket/vrbo.xlsx", "")
	assert.Error(t, err, "gs:// without storage must fail")
}

func TestLoader_GCSLogsFileName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "airbnb.xlsx")
	writeWorkbook(t, path, "Airbnb", [][]interface{}{
		{"Code", "Amount"},
		{"A1", 100},
	})
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	storage := &MockStorage{
		FetchFromGCSFunc: func(ctx context.Context, gcsURI string) ([]byte, error) {
			assert.Equal(t, "gs://tax-inputs/2023/airbnb.xlsx", gcsURI)
			return data, nil
		},
	}

	var buf bytes.Buffer
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(&buf).Level(zerolog.DebugLevel))

	tbl, err := NewLoader(storage).Load(ctx, "airbnb", "gs://tax-inputs/2023/airbnb.xlsx", "")
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())
	assert.Contains(t, buf.String(), `"file":"airbnb.xlsx"`)
	assert.Contains(t, buf.String(), `"location":"gs://tax-inputs/2023/airbnb.xlsx"`)
}

func TestReportWriter_LocalRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "Final_Taxes.xlsx")

	w := NewReportWriter(nil)
	require.NoError(t, w.WriteReport(context.Background(), path, "Taxes 2023", sampleRows()))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")

	tbl, err := NewLoader(nil).Load(context.Background(), "report", path, "Taxes 2023")
	require.NoError(t, err)

	assert.Equal(t, tax.Header(), tbl.Columns)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "A1", tbl.Value(0, "Code"))
	assert.Equal(t, "V-100", tbl.Value(0, "VRBO_ID"))
	assert.Equal(t, "1", tbl.Value(0, "Number_of_Cleanings"))
	assert.Equal(t, "480", tbl.Value(0, "Total_Income"))
	assert.Equal(t, "2.6784", tbl.Value(0, "Total_Taxes"))
	assert.Equal(t, "", tbl.Value(1, "VRBO_ID"))
	assert.Equal(t, "1000.5", tbl.Value(1, "Total_Income"))
}

func TestBuildReport_ColumnStyles(t *testing.T) {
	f, err := BuildReport("Taxes", sampleRows())
	require.NoError(t, err)
	defer f.Close()

	text, err := f.GetCellStyle("Taxes", "A2")
	require.NoError(t, err)
	count, err := f.GetCellStyle("Taxes", "F2")
	require.NoError(t, err)
	cleaning, err := f.GetCellStyle("Taxes", "G2")
	require.NoError(t, err)
	taxes, err := f.GetCellStyle("Taxes", "I3")
	require.NoError(t, err)

	assert.Equal(t, cleaning, taxes, "currency columns share a style")
	assert.NotEqual(t, text, cleaning)
	assert.NotEqual(t, count, cleaning)
	assert.NotEqual(t, text, count)
}

func TestBuildReport_EmptySheetName(t *testing.T) {
	_, err := BuildReport("", sampleRows())
	assert.Error(t, err)
}

func TestReportWriter_GCS(t *testing.T) {
	var uploaded []byte
	storage := &MockStorage{
		UploadBytesFunc: func(ctx context.Context, gcsURI string, data []byte, contentType string) error {
			assert.Equal(t, "gs://reports/2023/Final_Taxes.xlsx", gcsURI)
			assert.Equal(t, XLSXContentType, contentType)
			uploaded = data
			return nil
		},
	}
	storage.FetchFromGCSFunc = func(ctx context.Context, gcsURI string) ([]byte, error) {
		return uploaded, nil
	}

	ctx := context.Background()
	require.NoError(t, NewReportWriter(storage).WriteReport(ctx, "gs://reports/2023/Final_Taxes.xlsx", "Taxes", sampleRows()))
	require.NotEmpty(t, uploaded)

	tbl, err := NewLoader(storage).Load(ctx, "report", "gs://reports/2023/Final_Taxes.xlsx", "Taxes")
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, "B2", tbl.Value(1, "Code"))
}

func TestReportWriter_UploadFailure(t *testing.T) {
	storage := &MockStorage{
		UploadBytesFunc: func(ctx context.Context, gcsURI string, data []byte, contentType string) error {
			return errors.New("permission denied")
		},
	}

	err := NewReportWriter(storage).WriteReport(context.Background(), "gs://reports/out.xlsx", "Taxes", sampleRows())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}
