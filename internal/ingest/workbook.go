package ingest

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/PauloMoekotte/Herkomst-ROC/internal/dataset"
)

// readWorkbook loads the first sheet of an xlsx workbook. The first non-blank
// row is the header.
func readWorkbook(data []byte, infer bool) (*dataset.Frame, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrMissingHeader
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	start := 0
	for start < len(rows) && isBlank(rows[start]) {
		start++
	}
	if start == len(rows) {
		return nil, ErrMissingHeader
	}
	header := rows[start]

	var records [][]string
	for _, rec := range rows[start+1:] {
		if isBlank(rec) {
			continue
		}
		if len(rec) > len(header) {
			return nil, fmt.Errorf("%w (%d > %d)", ErrTooManyFields, len(rec), len(header))
		}
		records = append(records, rec)
	}
	return buildFrame(header, records, infer)
}
