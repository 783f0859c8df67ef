package query

import (
	"errors"
	"fmt"

	"github.com/PauloMoekotte/Herkomst-ROC/internal/dataset"
)

// ErrUnknownColumn is returned when a selection or aggregate names a column the data lacks
var ErrUnknownColumn = errors.New("unknown column")

// Filter restricts one dimension to a set of values.
// A filter with no values matches no rows.
type Filter struct {
	Column string   `json:"column" validate:"required"`
	Values []string `json:"values"`
}

// Selection is the set of active filters. Filters are AND-combined,
// values within one filter are OR-combined. Columns without a filter are unrestricted.
type Selection struct {
	Filters []Filter `json:"filters" validate:"dive"`
}

// NewSelection creates an empty selection that keeps every row
func NewSelection() Selection { return Selection{} }

// With returns a copy of s where column is restricted to values,
// replacing any earlier filter on the same column.
func (s Selection) With(column string, values ...string) Selection {
	out := Selection{Filters: make([]Filter, 0, len(s.Filters)+1)}
	for _, f := range s.Filters {
		if f.Column != column {
			out.Filters = append(out.Filters, f)
		}
	}
	vals := append([]string{}, values...)
	out.Filters = append(out.Filters, Filter{Column: column, Values: vals})
	return out
}

// Values returns the selected values for column and whether it is filtered
func (s Selection) Values(column string) ([]string, bool) {
	for _, f := range s.Filters {
		if f.Column == column {
			return f.Values, true
		}
	}
	return nil, false
}

type compiled struct {
	index int
	set   map[string]bool
}

func compile(v dataset.View, s Selection) ([]compiled, error) {
	out := make([]compiled, 0, len(s.Filters))
	for _, f := range s.Filters {
		idx, ok := v.Index(f.Column)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, f.Column)
		}
		set := make(map[string]bool, len(f.Values))
		for _, val := range f.Values {
			set[val] = true
		}
		out = append(out, compiled{index: idx, set: set})
	}
	return out, nil
}

// Mask evaluates the selection for each row of v
func Mask(v dataset.View, s Selection) ([]bool, error) {
	filters, err := compile(v, s)
	if err != nil {
		return nil, err
	}
	mask := make([]bool, v.Len())
	for i := range mask {
		mask[i] = matches(v, i, filters)
	}
	return mask, nil
}

// Apply returns the rows of v that satisfy every filter of s.
// An empty intersection yields an empty view, not an error.
func Apply(v dataset.View, s Selection) (dataset.View, error) {
	if len(s.Filters) == 0 {
		return v, nil
	}
	filters, err := compile(v, s)
	if err != nil {
		return dataset.View{}, err
	}
	return v.Where(func(i int) bool { return matches(v, i, filters) }), nil
}

func matches(v dataset.View, i int, filters []compiled) bool {
	for _, f := range filters {
		cell := v.At(i, f.index)
		if cell.IsNull() || !f.set[cell.Key()] {
			return false
		}
	}
	return true
}
