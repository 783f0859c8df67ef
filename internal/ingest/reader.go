package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/PauloMoekotte/Herkomst-ROC/internal/dataset"
)

// Source is one uploaded file
type Source struct {
	Name string
	Data []byte
}

// Options controls how sources are decoded and split
type Options struct {
	Delimiter rune
	Encodings []Encoding
	// InferNumbers turns columns whose non-empty cells are all plain numbers into numeric columns
	InferNumbers bool
}

// DefaultOptions matches the semicolon-separated CBS/DUO exports
func DefaultOptions() Options {
	return Options{
		Delimiter:    ';',
		Encodings:    DefaultEncodings,
		InferNumbers: true,
	}
}

var (
	ErrEmptyFile       = errors.New("file is empty")
	ErrMissingHeader   = errors.New("header row is missing")
	ErrDuplicateHeader = errors.New("duplicate column in header")
	ErrTooManyFields   = errors.New("row has more fields than the header")
)

// FileError records why a single source was skipped
type FileError struct {
	File string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.File, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// FileInfo describes a source that was loaded
type FileInfo struct {
	Name     string   `json:"name"`
	Encoding Encoding `json:"encoding"`
	Rows     int      `json:"rows"`
	Columns  []string `json:"columns"`
}

// Result is the concatenation of every source that loaded
type Result struct {
	Frame  *dataset.Frame
	Files  []FileInfo
	Errors []*FileError
}

// Empty reports whether no rows were loaded
func (r *Result) Empty() bool {
	return r.Frame == nil || r.Frame.Len() == 0
}

// Reader loads delimited sources into a single frame
type Reader struct {
	opts   Options
	logger *slog.Logger
}

// NewReader creates a reader. A zero delimiter means ';'.
func NewReader(opts Options, logger *slog.Logger) *Reader {
	if opts.Delimiter == 0 {
		opts.Delimiter = ';'
	}
	if len(opts.Encodings) == 0 {
		opts.Encodings = DefaultEncodings
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{opts: opts, logger: logger.With(slog.String("component", "ingest"))}
}

// Read loads every source. Sources are parsed concurrently; a source that
// cannot be decoded or parsed is recorded in Result.Errors and skipped, the
// others are concatenated in input order.
func (r *Reader) Read(ctx context.Context, sources []Source) (*Result, error) {
	type outcome struct {
		frame *dataset.Frame
		enc   Encoding
		err   error
	}
	outcomes := make([]outcome, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			frame, enc, err := r.readOne(src)
			outcomes[i] = outcome{frame: frame, enc: enc, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{}
	var frames []*dataset.Frame
	for i, src := range sources {
		o := outcomes[i]
		if o.err != nil {
			r.logger.WarnContext(ctx, "Skipping file",
				slog.String("file", src.Name),
				slog.String("error", o.err.Error()))
			res.Errors = append(res.Errors, &FileError{File: src.Name, Err: o.err})
			continue
		}

		r.logger.DebugContext(ctx, "Loaded file",
			slog.String("file", src.Name),
			slog.String("encoding", string(o.enc)),
			slog.Int("rows", o.frame.Len()))
		res.Files = append(res.Files, FileInfo{
			Name:     src.Name,
			Encoding: o.enc,
			Rows:     o.frame.Len(),
			Columns:  o.frame.Columns(),
		})
		frames = append(frames, o.frame)
	}

	res.Frame = dataset.Concat(frames...)

	r.logger.InfoContext(ctx, "Sources loaded",
		slog.Int("files", len(sources)),
		slog.Int("loaded", len(res.Files)),
		slog.Int("failed", len(res.Errors)),
		slog.Int("rows", res.Frame.Len()))
	return res, nil
}

func (r *Reader) readOne(src Source) (*dataset.Frame, Encoding, error) {
	if len(src.Data) == 0 {
		return nil, "", ErrEmptyFile
	}
	if isWorkbook(src.Name) {
		frame, err := readWorkbook(src.Data, r.opts.InferNumbers)
		return frame, UTF8, err
	}

	text, enc, err := decodeFallback(src.Data, r.opts.Encodings)
	if err != nil {
		return nil, "", err
	}
	frame, err := parseDelimited(text, r.opts.Delimiter, r.opts.InferNumbers)
	if err != nil {
		return nil, enc, err
	}
	return frame, enc, nil
}

func isWorkbook(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".xlsx")
}

func parseDelimited(text string, delim rune, infer bool) (*dataset.Frame, error) {
	cr := csv.NewReader(strings.NewReader(text))
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrMissingHeader
	}
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}

	var records [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse: %w", err)
		}
		if isBlank(rec) {
			continue
		}
		if len(rec) > len(header) {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("%w (line %d: %d > %d)", ErrTooManyFields, line, len(rec), len(header))
		}
		records = append(records, rec)
	}
	return buildFrame(header, records, infer)
}

// buildFrame turns a header and string records into a frame. Cells are
// trimmed of surrounding whitespace; empty cells are null.
func buildFrame(header []string, records [][]string, infer bool) (*dataset.Frame, error) {
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.TrimSpace(h)
		if cols[i] == "" {
			return nil, fmt.Errorf("%w: column %d has no name", ErrMissingHeader, i+1)
		}
	}
	frame, err := dataset.New(cols...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDuplicateHeader, err)
	}

	numeric := make([]bool, len(cols))
	if infer {
		numeric = numericColumns(len(cols), records)
	}

	for _, rec := range records {
		row := make([]dataset.Value, len(cols))
		for i := range cols {
			if i >= len(rec) {
				continue
			}
			cell := strings.TrimSpace(rec[i])
			switch {
			case cell == "":
				row[i] = dataset.Null()
			case numeric[i]:
				f, _ := strconv.ParseFloat(cell, 64)
				row[i] = dataset.Number(f)
			default:
				row[i] = dataset.Text(cell)
			}
		}
		if err := frame.Append(row...); err != nil {
			return nil, err
		}
	}
	return frame, nil
}

// numericColumns reports, per column, whether every non-empty cell is a plain
// decimal number. Columns without any value stay textual.
func numericColumns(width int, records [][]string) []bool {
	out := make([]bool, width)
	seen := make([]bool, width)
	for i := range out {
		out[i] = true
	}
	for _, rec := range records {
		for i := 0; i < width && i < len(rec); i++ {
			if !out[i] {
				continue
			}
			cell := strings.TrimSpace(rec[i])
			if cell == "" {
				continue
			}
			seen[i] = true
			if !isPlainNumber(cell) {
				out[i] = false
			}
		}
	}
	for i := range out {
		out[i] = out[i] && seen[i]
	}
	return out
}

// isPlainNumber accepts what a tabular reader would: optional sign, digits, one dot, exponent.
// Words such as "Inf" or "NaN" and comma decimals stay text.
func isPlainNumber(s string) bool {
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' && r != '-' && r != '+' && r != 'e' && r != 'E' {
			return false
		}
	}
	return true
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
