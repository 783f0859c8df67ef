package exporter

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/PauloMoekotte/Herkomst-ROC/internal/dataset"
)

// Format is an export file format
type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

// ParseFormat accepts "csv" or "xlsx" in any case, with or without a leading dot
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimPrefix(s, "."))) {
	case CSV:
		return CSV, nil
	case XLSX:
		return XLSX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// FormatFor picks the format from a file name's extension
func FormatFor(name string) (Format, error) {
	return ParseFormat(filepath.Ext(name))
}

// ContentType returns the MIME type served for f
func (f Format) ContentType() string {
	switch f {
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv; charset=utf-8"
	}
}

// FileName replaces the extension of name with f
func (f Format) FileName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + "." + string(f)
}

// formatValue renders a cell for text output; missing values become empty
func formatValue(v dataset.Value) string {
	if v.IsNull() {
		return ""
	}
	return v.String()
}

// cellValue converts a cell for spreadsheet output
func cellValue(v dataset.Value) interface{} {
	if f, ok := v.Float(); ok {
		return f
	}
	if s, ok := v.Str(); ok {
		return s
	}
	return nil
}
