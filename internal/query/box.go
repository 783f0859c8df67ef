package query

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/PauloMoekotte/Herkomst-ROC/internal/dataset"
)

// Box summarises the distribution of one group for a box plot
type Box struct {
	X      string    `json:"x"`
	Color  string    `json:"color,omitempty"`
	N      int       `json:"n"`
	Min    float64   `json:"min"`
	Q1     float64   `json:"q1"`
	Median float64   `json:"median"`
	Q3     float64   `json:"q3"`
	Max    float64   `json:"max"`
	Values []float64 `json:"-"`
}

// BoxStats groups v by x (and color when given) and summarises the numeric cells of y.
// Groups without numeric cells are left out. Quartiles use linear interpolation.
func BoxStats(v dataset.View, x, y, color string) ([]Box, error) {
	xi, ok := v.Index(x)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, x)
	}
	yi, ok := v.Index(y)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, y)
	}
	ci := -1
	if color != "" {
		if ci, ok = v.Index(color); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, color)
		}
	}

	index := make(map[[2]string]int)
	var boxes []Box
	for i := 0; i < v.Len(); i++ {
		f, ok := v.At(i, yi).Float()
		if !ok {
			continue
		}
		xc := v.At(i, xi)
		if xc.IsNull() {
			continue
		}
		var k [2]string
		k[0] = xc.Key()
		if ci >= 0 {
			cc := v.At(i, ci)
			if cc.IsNull() {
				continue
			}
			k[1] = cc.Key()
		}
		pos, seen := index[k]
		if !seen {
			pos = len(boxes)
			index[k] = pos
			boxes = append(boxes, Box{X: k[0], Color: k[1]})
		}
		boxes[pos].Values = append(boxes[pos].Values, f)
	}

	for i := range boxes {
		b := &boxes[i]
		sort.Float64s(b.Values)
		b.N = len(b.Values)
		b.Min = b.Values[0]
		b.Max = b.Values[b.N-1]
		b.Q1 = stat.Quantile(0.25, stat.LinInterp, b.Values, nil)
		b.Median = stat.Quantile(0.5, stat.LinInterp, b.Values, nil)
		b.Q3 = stat.Quantile(0.75, stat.LinInterp, b.Values, nil)
	}

	sort.SliceStable(boxes, func(i, j int) bool {
		if c := dataset.CompareKeys(boxes[i].X, boxes[j].X); c != 0 {
			return c < 0
		}
		return dataset.CompareKeys(boxes[i].Color, boxes[j].Color) < 0
	})
	return boxes, nil
}
