package query

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/PauloMoekotte/Herkomst-ROC/internal/dataset"
)

// Reducer folds the numeric cells of a column into one value
type Reducer string

const (
	Sum   Reducer = "sum"
	Mean  Reducer = "mean"
	Min   Reducer = "min"
	Max   Reducer = "max"
	Count Reducer = "count"
)

// ParseReducer validates a reducer name
func ParseReducer(s string) (Reducer, error) {
	switch r := Reducer(strings.ToLower(s)); r {
	case Sum, Mean, Min, Max, Count:
		return r, nil
	}
	return "", fmt.Errorf("unknown reducer %q", s)
}

// Result is an aggregate that may be unavailable
type Result struct {
	Value float64 `json:"value"`
	Valid bool    `json:"valid"`
}

// Reduce folds target over every row of v. Nulls and text cells are ignored.
// Sum of no rows is a valid 0; mean, min and max of no numbers are invalid.
// Count reports the number of rows regardless of the target cells.
func Reduce(v dataset.View, target string, r Reducer) (Result, error) {
	if r == Count {
		return Result{Value: float64(v.Len()), Valid: true}, nil
	}
	c, ok := v.Index(target)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownColumn, target)
	}
	return reduceRows(v, c, r), nil
}

func reduceRows(v dataset.View, c int, r Reducer) Result {
	var (
		sum float64
		n   int
		lo  = math.Inf(1)
		hi  = math.Inf(-1)
	)
	for i := 0; i < v.Len(); i++ {
		f, ok := v.At(i, c).Float()
		if !ok {
			continue
		}
		sum += f
		n++
		lo = math.Min(lo, f)
		hi = math.Max(hi, f)
	}

	switch r {
	case Sum:
		return Result{Value: sum, Valid: true}
	case Count:
		return Result{Value: float64(v.Len()), Valid: true}
	}
	if n == 0 {
		return Result{}
	}
	switch r {
	case Min:
		return Result{Value: lo, Valid: true}
	case Max:
		return Result{Value: hi, Valid: true}
	}
	return Result{Value: sum / float64(n), Valid: true}
}

// Group is one bucket of a grouped aggregate
type Group struct {
	Keys  []string `json:"keys"`
	Value float64  `json:"value"`
	Valid bool     `json:"valid"`
	Rows  int      `json:"rows"`
}

// Key returns the first grouping key
func (g Group) Key() string { return g.Keys[0] }

// GroupBy buckets v by one or more key columns and reduces target per bucket.
// Rows with a null key are dropped. Groups are ordered ascending by key,
// numeric keys by value.
func GroupBy(v dataset.View, keys []string, target string, r Reducer) ([]Group, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("group by needs at least one key column")
	}
	keyIdx := make([]int, len(keys))
	for i, k := range keys {
		idx, ok := v.Index(k)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, k)
		}
		keyIdx[i] = idx
	}
	targetIdx := -1
	if r != Count {
		idx, ok := v.Index(target)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, target)
		}
		targetIdx = idx
	}

	type bucket struct {
		keys []string
		rows []int
	}
	buckets := make(map[string]*bucket)
	var order []string

	for i := 0; i < v.Len(); i++ {
		parts := make([]string, len(keyIdx))
		skip := false
		for k, idx := range keyIdx {
			cell := v.At(i, idx)
			if cell.IsNull() {
				skip = true
				break
			}
			parts[k] = cell.Key()
		}
		if skip {
			continue
		}
		id := strings.Join(parts, "\x1f")
		b, ok := buckets[id]
		if !ok {
			b = &bucket{keys: parts}
			buckets[id] = b
			order = append(order, id)
		}
		b.rows = append(b.rows, i)
	}

	groups := make([]Group, 0, len(order))
	for _, id := range order {
		b := buckets[id]
		sub := v.Pick(b.rows)
		res := Result{Value: float64(sub.Len()), Valid: true}
		if r != Count {
			res = reduceRows(sub, targetIdx, r)
		}
		groups = append(groups, Group{Keys: b.keys, Value: res.Value, Valid: res.Valid, Rows: sub.Len()})
	}
	SortByKeys(groups)
	return groups, nil
}

// SortByKeys orders groups ascending by each key level in turn
func SortByKeys(groups []Group) {
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i].Keys, groups[j].Keys
		for k := 0; k < len(a) && k < len(b); k++ {
			if c := dataset.CompareKeys(a[k], b[k]); c != 0 {
				return c < 0
			}
		}
		return len(a) < len(b)
	})
}

// SortByValue orders groups by value, invalid groups last
func SortByValue(groups []Group, descending bool) {
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if a.Valid != b.Valid {
			return a.Valid
		}
		if descending {
			return a.Value > b.Value
		}
		return a.Value < b.Value
	})
}

// Top returns at most n groups
func Top(groups []Group, n int) []Group {
	if n <= 0 || len(groups) <= n {
		return groups
	}
	return groups[:n]
}

// Point is one x/y pair of a chart series
type Point struct {
	X     string  `json:"x"`
	Y     float64 `json:"y"`
	Valid bool    `json:"valid"`
}

// Series is a named sequence of points
type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// Pivot turns two-key groups into one series per second key, with the first key on x.
// Single-key groups become one unnamed series.
func Pivot(groups []Group) []Series {
	var out []Series
	pos := make(map[string]int)
	for _, g := range groups {
		name := ""
		if len(g.Keys) > 1 {
			name = g.Keys[1]
		}
		i, ok := pos[name]
		if !ok {
			i = len(out)
			pos[name] = i
			out = append(out, Series{Name: name})
		}
		out[i].Points = append(out[i].Points, Point{X: g.Keys[0], Y: g.Value, Valid: g.Valid})
	}
	sort.SliceStable(out, func(i, j int) bool { return dataset.CompareKeys(out[i].Name, out[j].Name) < 0 })
	return out
}
