// Package sheets reads input workbooks into tables and renders the tax
// summary report. Locations are local paths or gs:// URIs.
package sheets

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/dvloznov/rental-tax/internal/gcs"
	"github.com/dvloznov/rental-tax/internal/gcsuploader"
	"github.com/dvloznov/rental-tax/internal/logger"
	"github.com/dvloznov/rental-tax/internal/table"
)

// Loader opens workbooks and extracts a single sheet as a table.
type Loader struct {
	storage gcs.StorageService
}

// NewLoader creates a Loader. storage is used only for gs:// locations
// and may be nil when every input is local.
func NewLoader(storage gcs.StorageService) *Loader {
	return &Loader{storage: storage}
}

// Load reads sheet from the workbook at location and returns it as a table
// called name. An empty sheet selects the first sheet in the workbook.
func (l *Loader) Load(ctx context.Context, name, location, sheet string) (*table.Table, error) {
	log := logger.FromContext(ctx)

	f, err := l.open(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("open %s workbook %q: %w", name, location, err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("%s workbook %q has no sheet %q (sheets: %v)", name, location, sheet, f.GetSheetList())
	}

	// Raw values keep amounts as stored rather than as displayed.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read %s sheet %q: %w", name, sheet, err)
	}

	t := table.FromRecords(name, rows)
	event := log.Debug().
		Str("table", name).
		Str("location", location).
		Str("sheet", sheet).
		Int("rows", t.Len()).
		Int("columns", len(t.Columns))
	if gcsuploader.IsGCSURI(location) {
		event = event.Str("file", gcsuploader.ExtractFilenameFromGCSURI(location))
	}
	event.Msg("Loaded sheet")

	return t, nil
}

func (l *Loader) open(ctx context.Context, location string) (*excelize.File, error) {
	if !gcsuploader.IsGCSURI(location) {
		return excelize.OpenFile(location)
	}
	if l.storage == nil {
		return nil, fmt.Errorf("no storage service configured for %s", location)
	}

	data, err := l.storage.FetchFromGCS(ctx, location)
	if err != nil {
		return nil, err
	}
	return excelize.OpenReader(bytes.NewReader(data))
}
