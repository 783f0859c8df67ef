package exporter

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/PauloMoekotte/Herkomst-ROC/internal/dataset"
)

// WriteXLSX writes v as a single-sheet workbook. Numbers stay numeric and
// missing values are left blank.
func (e *Exporter) WriteXLSX(w io.Writer, v dataset.View) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := e.opts.SheetName
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open sheet writer: %w", err)
	}

	header := make([]interface{}, len(v.Columns()))
	for i, c := range v.Columns() {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	row := make([]interface{}, len(header))
	for i := 0; i < v.Len(); i++ {
		for c, val := range v.Row(i) {
			row[c] = cellValue(val)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", i, err)
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Debug("XLSX export written",
		slog.String("sheet", sheet),
		slog.Int("record_count", v.Len()))
	return nil
}
