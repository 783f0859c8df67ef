package charts

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PauloMoekotte/Herkomst-ROC/internal/dashboard"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/query"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func twoSeries() []query.Series {
	return []query.Series{
		{Name: "ROC van Twente", Points: []query.Point{{X: "2022", Y: 120, Valid: true}, {X: "2023", Y: 135, Valid: true}}},
		{Name: "Zone.college", Points: []query.Point{{X: "2022", Y: 40, Valid: true}, {X: "2023", Y: 0, Valid: false}}},
	}
}

func oneSeries() []query.Series {
	return []query.Series{{Points: []query.Point{{X: "BOL", Y: 80, Valid: true}, {X: "BBL", Y: 20, Valid: true}}}}
}

func TestRenderKinds(t *testing.T) {
	r := NewRenderer(640, 320)

	tests := []struct {
		name  string
		chart dashboard.Chart
	}{
		{"line", dashboard.Chart{Title: "Trend", Kind: dashboard.LineChart, XLabel: "Jaar", YLabel: "Aantal", Series: twoSeries()}},
		{"single point line", dashboard.Chart{Kind: dashboard.LineChart, Series: []query.Series{{Points: []query.Point{{X: "2024", Y: 5, Valid: true}}}}}},
		{"bar", dashboard.Chart{Title: "BOL vs BBL", Kind: dashboard.BarChart, Series: oneSeries()}},
		{"pie", dashboard.Chart{Title: "Niveau", Kind: dashboard.PieChart, Series: oneSeries()}},
		{"horizontal bar", dashboard.Chart{Title: "Top", Kind: dashboard.HorizontalBar, Series: oneSeries()}},
		{"grouped bar", dashboard.Chart{Title: "Cross-over", Kind: dashboard.GroupedBarChart, Series: twoSeries()}},
		{"box", dashboard.Chart{Title: "Custom", Kind: dashboard.BoxChart, Boxes: []query.Box{
			{X: "niveau 2", Values: []float64{11, 12, 13}},
			{X: "niveau 4", Color: "BOL", Values: []float64{14, 15, 16, 18}},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := r.PNG(tt.chart)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(data, pngMagic))
		})
	}
}

func TestRenderEmpty(t *testing.T) {
	r := NewRenderer(0, 0)
	assert.Equal(t, 1024, r.Width)

	_, err := r.PNG(dashboard.Chart{Kind: dashboard.LineChart})
	assert.ErrorIs(t, err, ErrEmptyChart)

	_, err = r.PNG(dashboard.Chart{Kind: dashboard.PieChart, Series: []query.Series{{Points: []query.Point{{X: "a", Y: 0, Valid: true}}}}})
	assert.ErrorIs(t, err, ErrEmptyChart)

	_, err = r.PNG(dashboard.Chart{Kind: dashboard.LineChart, Series: []query.Series{{Points: []query.Point{{X: "a"}}}}})
	assert.ErrorIs(t, err, ErrEmptyChart)
}

func TestPadRange(t *testing.T) {
	lo, hi := padRange(5, 5)
	assert.Less(t, lo, 5.0)
	assert.Greater(t, hi, 5.0)

	lo, hi = padRange(0, 100)
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 105.0, hi)
}
