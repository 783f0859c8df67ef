package normalize

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/PauloMoekotte/Herkomst-ROC/internal/dataset"
)

// Policy decides what an unparseable or missing cell becomes
type Policy int

const (
	// PolicyNull is used for columns that are averaged: "12,50" parses as 12.5,
	// anything unparseable becomes null so it drops out of means.
	PolicyNull Policy = iota
	// PolicyZero is used for columns that are summed: strict numeric parse,
	// unparseable and missing cells count as 0.
	PolicyZero
)

func (p Policy) String() string {
	if p == PolicyZero {
		return "zero"
	}
	return "null"
}

// Status classifies the outcome of coercing one cell
type Status int

const (
	StatusOK Status = iota
	StatusUnparseable
	StatusMissing
)

// Cell is the coerced value together with how it was obtained
type Cell struct {
	Value  dataset.Value
	Status Status
}

// Rule assigns a policy to a column
type Rule struct {
	Column string
	Policy Policy
}

// Coerce converts one value under policy p. Numbers pass through unchanged,
// so applying Coerce to its own output yields the same value.
func Coerce(v dataset.Value, p Policy) Cell {
	switch v.Kind() {
	case dataset.KindNumber:
		return Cell{Value: v, Status: StatusOK}
	case dataset.KindNull:
		if p == PolicyZero {
			return Cell{Value: dataset.Number(0), Status: StatusMissing}
		}
		return Cell{Value: v, Status: StatusMissing}
	}

	s, _ := v.Str()
	if f, ok := parse(s, p); ok {
		return Cell{Value: dataset.Number(f), Status: StatusOK}
	}
	if p == PolicyZero {
		return Cell{Value: dataset.Number(0), Status: StatusUnparseable}
	}
	return Cell{Value: dataset.Null(), Status: StatusUnparseable}
}

// ParseLocaleFloat parses a number written with either ',' or '.' as decimal separator.
// Every comma is replaced, so "1,234,5" does not parse.
func ParseLocaleFloat(s string) (float64, bool) {
	return parse(s, PolicyNull)
}

func parse(s string, p Policy) (float64, bool) {
	s = strings.TrimSpace(s)
	if p == PolicyNull {
		s = strings.ReplaceAll(s, ",", ".")
	}
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// Apply returns a copy of frame with every rule applied, plus a report of the
// cells that could not be converted. The input frame is left untouched.
// Rules naming columns the frame lacks are skipped and listed in the report.
func Apply(frame *dataset.Frame, rules []Rule) (*dataset.Frame, *Report) {
	out := frame.Clone()
	report := &Report{Columns: make(map[string]*ColumnReport)}

	for _, rule := range rules {
		c, ok := out.Index(rule.Column)
		if !ok {
			report.Skipped = append(report.Skipped, rule.Column)
			continue
		}
		cr := &ColumnReport{Policy: rule.Policy.String()}
		for r := 0; r < out.Len(); r++ {
			cell := Coerce(out.At(r, c), rule.Policy)
			out.Set(r, c, cell.Value)
			cr.record(r, cell.Status)
		}
		report.Columns[rule.Column] = cr
	}
	sort.Strings(report.Skipped)
	return out, report
}
