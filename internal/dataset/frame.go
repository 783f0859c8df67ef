package dataset

import "fmt"

// Frame is an ordered, column-addressed record set.
// Rows are always as wide as the column list.
type Frame struct {
	columns []string
	index   map[string]int
	rows    [][]Value
}

// New creates an empty frame with the given columns. Duplicate names are rejected.
func New(columns ...string) (*Frame, error) {
	f := &Frame{index: make(map[string]int, len(columns))}
	for _, c := range columns {
		if _, dup := f.index[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		f.index[c] = len(f.columns)
		f.columns = append(f.columns, c)
	}
	return f, nil
}

// MustNew is New for column lists known to be unique
func MustNew(columns ...string) *Frame {
	f, err := New(columns...)
	if err != nil {
		panic(err)
	}
	return f
}

// Append adds a row. Short rows are padded with nulls, long rows are an error.
func (f *Frame) Append(row ...Value) error {
	if len(row) > len(f.columns) {
		return fmt.Errorf("row has %d values, frame has %d columns", len(row), len(f.columns))
	}
	r := make([]Value, len(f.columns))
	copy(r, row)
	f.rows = append(f.rows, r)
	return nil
}

// Columns returns a copy of the column names in order
func (f *Frame) Columns() []string {
	out := make([]string, len(f.columns))
	copy(out, f.columns)
	return out
}

// Index returns the position of a column
func (f *Frame) Index(column string) (int, bool) {
	i, ok := f.index[column]
	return i, ok
}

// Has reports whether the frame carries the column
func (f *Frame) Has(column string) bool {
	_, ok := f.index[column]
	return ok
}

// Len returns the number of rows
func (f *Frame) Len() int { return len(f.rows) }

// Width returns the number of columns
func (f *Frame) Width() int { return len(f.columns) }

// At returns the cell at row r, column c
func (f *Frame) At(r, c int) Value { return f.rows[r][c] }

// Set replaces the cell at row r, column c
func (f *Frame) Set(r, c int, v Value) { f.rows[r][c] = v }

// Row returns a copy of row r
func (f *Frame) Row(r int) []Value {
	out := make([]Value, len(f.rows[r]))
	copy(out, f.rows[r])
	return out
}

// Clone returns a deep copy of the frame
func (f *Frame) Clone() *Frame {
	c := MustNew(f.columns...)
	c.rows = make([][]Value, len(f.rows))
	for i, r := range f.rows {
		c.rows[i] = append([]Value(nil), r...)
	}
	return c
}

// All returns a view over every row of the frame
func (f *Frame) All() View {
	idx := make([]int, len(f.rows))
	for i := range idx {
		idx[i] = i
	}
	return View{frame: f, rows: idx}
}

// Concat stacks frames by row. The result carries the union of all columns in
// first-seen order; cells for columns a frame lacks are null.
func Concat(frames ...*Frame) *Frame {
	var cols []string
	seen := make(map[string]bool)
	for _, f := range frames {
		if f == nil {
			continue
		}
		for _, c := range f.columns {
			if !seen[c] {
				seen[c] = true
				cols = append(cols, c)
			}
		}
	}

	out := MustNew(cols...)
	for _, f := range frames {
		if f == nil {
			continue
		}
		mapping := make([]int, len(f.columns))
		for i, c := range f.columns {
			mapping[i] = out.index[c]
		}
		for _, r := range f.rows {
			nr := make([]Value, len(cols))
			for i, v := range r {
				nr[mapping[i]] = v
			}
			out.rows = append(out.rows, nr)
		}
	}
	return out
}
