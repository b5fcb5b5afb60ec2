package sheets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/dvloznov/rental-tax/internal/gcs"
	"github.com/dvloznov/rental-tax/internal/gcsuploader"
	"github.com/dvloznov/rental-tax/internal/logger"
	"github.com/dvloznov/rental-tax/internal/tax"
)

const (
	// XLSXContentType is the MIME type used for uploaded reports.
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// numFmtText is the built-in "@" format.
	numFmtText = 49
	// numFmtInteger is the built-in "0" format.
	numFmtInteger = 1
)

var currencyFormat = `"$"#,##0.00_);[Red]("$"#,##0.00)`

// BuildReport renders rows into a new workbook with a single sheet. Column
// display formats follow tax.Columns.
func BuildReport(sheet string, rows []tax.SummaryRow) (*excelize.File, error) {
	if sheet == "" {
		return nil, fmt.Errorf("report sheet name is empty")
	}

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("name sheet %q: %w", sheet, err)
	}

	styles, err := columnStyles(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	for i, col := range tax.Columns {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		if err := f.SetColStyle(sheet, name, styles[col.Format]); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("style column %s: %w", col.Name, err)
		}
		if err := f.SetColWidth(sheet, name, name, columnWidth(col)); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	header := tax.Header()
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		values := r.Values()
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("write row %d (%s): %w", i+1, r.Code, err)
		}
	}

	return f, nil
}

func columnStyles(f *excelize.File) (map[tax.Format]int, error) {
	text, err := f.NewStyle(&excelize.Style{NumFmt: numFmtText})
	if err != nil {
		return nil, fmt.Errorf("create text style: %w", err)
	}
	number, err := f.NewStyle(&excelize.Style{NumFmt: numFmtInteger})
	if err != nil {
		return nil, fmt.Errorf("create number style: %w", err)
	}
	currency, err := f.NewStyle(&excelize.Style{CustomNumFmt: &currencyFormat})
	if err != nil {
		return nil, fmt.Errorf("create currency style: %w", err)
	}

	return map[tax.Format]int{
		tax.FormatText:     text,
		tax.FormatNumber:   number,
		tax.FormatCurrency: currency,
	}, nil
}

func columnWidth(col tax.Column) float64 {
	switch col.Format {
	case tax.FormatCurrency:
		return 16
	case tax.FormatNumber:
		return 20
	}
	if col.Name == "Listing" {
		return 40
	}
	return 14
}

// ReportWriter saves the rendered report to a local path or a gs:// URI.
type ReportWriter struct {
	storage gcs.StorageService
}

// NewReportWriter creates a ReportWriter. storage may be nil when the
// report is written locally.
func NewReportWriter(storage gcs.StorageService) *ReportWriter {
	return &ReportWriter{storage: storage}
}

// WriteReport renders rows and stores the workbook at location. Nothing is
// left at location if rendering or writing fails.
func (w *ReportWriter) WriteReport(ctx context.Context, location, sheet string, rows []tax.SummaryRow) error {
	log := logger.FromContext(ctx)

	f, err := BuildReport(sheet, rows)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	if gcsuploader.IsGCSURI(location) {
		if w.storage == nil {
			return fmt.Errorf("no storage service configured for %s", location)
		}
		if err := w.storage.UploadBytes(ctx, location, buf.Bytes(), XLSXContentType); err != nil {
			return fmt.Errorf("upload report: %w", err)
		}
	} else if err := writeFileAtomic(location, buf.Bytes()); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	log.Info().
		Str("location", location).
		Str("sheet", sheet).
		Int("rows", len(rows)).
		Msg("Report written")

	return nil
}

// writeFileAtomic writes data next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
