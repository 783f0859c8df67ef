package query

import (
	"github.com/PauloMoekotte/Herkomst-ROC/internal/dataset"
)

// Condition requires a column to equal a value
type Condition struct {
	Column string `json:"column"`
	Value  string `json:"value"`
}

// Eq builds a Condition
func Eq(column, value string) Condition {
	return Condition{Column: column, Value: value}
}

// KPI is a single headline number computed over a sub-filtered view
type KPI struct {
	Name   string      `json:"name"`
	Where  []Condition `json:"where,omitempty"`
	Target string      `json:"target"`
	Reduce Reducer     `json:"reduce"`
}

// Evaluate applies the KPI conditions to v and reduces the target column.
// The result is invalid when no row satisfies the conditions, when a condition
// or target column is absent, or when a mean has no numeric cells.
func (k KPI) Evaluate(v dataset.View) Result {
	sub := v
	if len(k.Where) > 0 {
		sel := NewSelection()
		for _, c := range k.Where {
			sel = sel.With(c.Column, c.Value)
		}
		var err error
		sub, err = Apply(v, sel)
		if err != nil {
			return Result{}
		}
	}
	if sub.Empty() {
		return Result{}
	}
	res, err := Reduce(sub, k.Target, k.Reduce)
	if err != nil {
		return Result{}
	}
	return res
}
