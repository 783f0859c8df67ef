package dataset

// View is a read-only selection of frame rows. Filtering produces views and
// never touches the underlying frame.
type View struct {
	frame *Frame
	rows  []int
}

// NewView builds a view over the given row indices of f
func NewView(f *Frame, rows []int) View {
	return View{frame: f, rows: rows}
}

// Frame returns the frame backing the view
func (v View) Frame() *Frame { return v.frame }

// Len returns the number of rows in the view
func (v View) Len() int { return len(v.rows) }

// Empty reports whether the view has no rows
func (v View) Empty() bool { return len(v.rows) == 0 }

// Columns returns the column names of the backing frame
func (v View) Columns() []string {
	if v.frame == nil {
		return nil
	}
	return v.frame.Columns()
}

// Index returns the position of a column in the backing frame
func (v View) Index(column string) (int, bool) {
	if v.frame == nil {
		return 0, false
	}
	return v.frame.Index(column)
}

// At returns the cell at view row i, frame column c
func (v View) At(i, c int) Value { return v.frame.At(v.rows[i], c) }

// Row returns a copy of view row i
func (v View) Row(i int) []Value { return v.frame.Row(v.rows[i]) }

// Where returns the rows of v for which keep reports true
func (v View) Where(keep func(i int) bool) View {
	out := make([]int, 0, len(v.rows))
	for i, r := range v.rows {
		if keep(i) {
			out = append(out, r)
		}
	}
	return View{frame: v.frame, rows: out}
}

// Pick returns the view rows at the given view positions, in that order
func (v View) Pick(positions []int) View {
	out := make([]int, len(positions))
	for i, p := range positions {
		out[i] = v.rows[p]
	}
	return View{frame: v.frame, rows: out}
}

// Head returns at most n leading rows
func (v View) Head(n int) View {
	if n < 0 || n >= len(v.rows) {
		return v
	}
	return View{frame: v.frame, rows: v.rows[:n]}
}

// Column returns the values of one column in view order
func (v View) Column(column string) ([]Value, bool) {
	c, ok := v.Index(column)
	if !ok {
		return nil, false
	}
	out := make([]Value, len(v.rows))
	for i, r := range v.rows {
		out[i] = v.frame.At(r, c)
	}
	return out, true
}

// Records returns the view as string rows (header excluded), nulls as empty strings
func (v View) Records() [][]string {
	out := make([][]string, len(v.rows))
	for i, r := range v.rows {
		rec := make([]string, v.frame.Width())
		for c := range rec {
			rec[c] = v.frame.At(r, c).Key()
		}
		out[i] = rec
	}
	return out
}

// Unique returns the distinct non-null keys of a column in first-seen order
func (v View) Unique(column string) []string {
	vals, ok := v.Column(column)
	if !ok {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, val := range vals {
		if val.IsNull() {
			continue
		}
		k := val.Key()
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
