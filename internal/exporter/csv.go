package exporter

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/PauloMoekotte/Herkomst-ROC/internal/dataset"
)

// ErrUnsupportedFormat is returned for unknown export formats
var ErrUnsupportedFormat = errors.New("unsupported export format")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Options configures export behavior
type Options struct {
	BOMPrefix bool   // Add UTF-8 BOM for Excel compatibility
	Delimiter rune   // CSV field separator, ',' when zero
	SheetName string // XLSX sheet name, "Data" when empty
}

// Exporter writes dataset views as CSV or XLSX
type Exporter struct {
	opts   Options
	logger *slog.Logger
}

// New creates an exporter
func New(opts Options) *Exporter {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	if opts.SheetName == "" {
		opts.SheetName = "Data"
	}
	return &Exporter{opts: opts, logger: slog.Default().With(slog.String("component", "exporter"))}
}

// Write encodes v in format f to w
func (e *Exporter) Write(w io.Writer, f Format, v dataset.View) error {
	switch f {
	case CSV:
		return e.WriteCSV(w, v)
	case XLSX:
		return e.WriteXLSX(w, v)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}

// WriteCSV writes the header and every row of v
func (e *Exporter) WriteCSV(w io.Writer, v dataset.View) error {
	bw := bufio.NewWriter(w)
	if e.opts.BOMPrefix {
		if _, err := bw.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	cw := csv.NewWriter(bw)
	cw.Comma = e.opts.Delimiter
	if err := cw.Write(v.Columns()); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	record := make([]string, len(v.Columns()))
	for i := 0; i < v.Len(); i++ {
		for c, val := range v.Row(i) {
			record[c] = formatValue(val)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV writer: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}

	e.logger.Debug("CSV export written",
		slog.Int("record_count", v.Len()),
		slog.Int("column_count", len(v.Columns())))
	return nil
}

// WriteFile writes v to path, choosing the format from its extension
func (e *Exporter) WriteFile(path string, v dataset.View) error {
	f, err := FormatFor(path)
	if err != nil {
		return err
	}

	e.logger.Info("Writing export file",
		slog.String("file_path", path),
		slog.String("format", string(f)),
		slog.Int("record_count", v.Len()))

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := e.Write(file, f, v); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	return nil
}
