package charts

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/PauloMoekotte/Herkomst-ROC/internal/dashboard"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/dataset"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/query"
)

// ErrEmptyChart is returned for charts without drawable points
var ErrEmptyChart = errors.New("chart has no data")

// ContentType of rendered charts
const ContentType = "image/png"

// Renderer draws dashboard charts as PNG images
type Renderer struct {
	Width  int
	Height int
}

// NewRenderer creates a renderer; non-positive sizes default to 1024x512
func NewRenderer(width, height int) *Renderer {
	if width <= 0 {
		width = 1024
	}
	if height <= 0 {
		height = 512
	}
	return &Renderer{Width: width, Height: height}
}

// Render writes c as PNG to w
func (r *Renderer) Render(w io.Writer, c dashboard.Chart) error {
	if c.Empty() {
		return ErrEmptyChart
	}
	switch c.Kind {
	case dashboard.LineChart:
		return r.line(w, c)
	case dashboard.BarChart:
		return r.bar(w, c)
	case dashboard.PieChart:
		return r.pie(w, c)
	case dashboard.HorizontalBar, dashboard.GroupedBarChart:
		return r.groupedBar(w, c)
	case dashboard.BoxChart:
		return r.box(w, c)
	}
	return fmt.Errorf("unsupported chart kind %q", c.Kind)
}

// PNG renders c into a byte slice
func (r *Renderer) PNG(c dashboard.Chart) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Renderer) line(w io.Writer, c dashboard.Chart) error {
	labels := xLabels(c.Series)
	pos := make(map[string]float64, len(labels))
	ticks := make([]chart.Tick, len(labels))
	for i, l := range labels {
		pos[l] = float64(i)
		ticks[i] = chart.Tick{Value: float64(i), Label: l}
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	var series []chart.Series
	for _, s := range c.Series {
		cs := chart.ContinuousSeries{
			Name:  seriesName(s, c),
			Style: chart.Style{StrokeWidth: 2, DotWidth: 4},
		}
		for _, p := range s.Points {
			if !p.Valid {
				continue
			}
			cs.XValues = append(cs.XValues, pos[p.X])
			cs.YValues = append(cs.YValues, p.Y)
			lo, hi = math.Min(lo, p.Y), math.Max(hi, p.Y)
		}
		if len(cs.XValues) > 0 {
			series = append(series, cs)
		}
	}
	if len(series) == 0 {
		return ErrEmptyChart
	}
	if c.YMin != nil {
		lo = *c.YMin
	}
	if c.YMax != nil {
		hi = *c.YMax
	}
	lo, hi = padRange(lo, hi)

	graph := chart.Chart{
		Title:  c.Title,
		Width:  r.Width,
		Height: r.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:  c.XLabel,
			Ticks: ticks,
			Range: &chart.ContinuousRange{Min: -0.5, Max: float64(len(labels)) - 0.5},
		},
		YAxis: chart.YAxis{
			Name:  c.YLabel,
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
		},
		Series: series,
	}
	if len(series) > 1 {
		graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	}
	return graph.Render(chart.PNG, w)
}

func (r *Renderer) bar(w io.Writer, c dashboard.Chart) error {
	var bars []chart.Value
	hi := 0.0
	for _, p := range firstSeries(c).Points {
		if !p.Valid {
			continue
		}
		bars = append(bars, chart.Value{Label: p.X, Value: p.Y})
		hi = math.Max(hi, p.Y)
	}
	if len(bars) == 0 {
		return ErrEmptyChart
	}
	_, hi = padRange(0, hi)

	graph := chart.BarChart{
		Title:    c.Title,
		Width:    r.Width,
		Height:   r.Height,
		BarWidth: barWidth(r.Width, len(bars)),
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		YAxis: chart.YAxis{
			Name:  c.YLabel,
			Range: &chart.ContinuousRange{Min: 0, Max: hi},
		},
		Bars: bars,
	}
	return graph.Render(chart.PNG, w)
}

func (r *Renderer) pie(w io.Writer, c dashboard.Chart) error {
	var values []chart.Value
	for _, p := range firstSeries(c).Points {
		if !p.Valid || p.Y <= 0 {
			continue
		}
		values = append(values, chart.Value{Label: p.X, Value: p.Y})
	}
	if len(values) == 0 {
		return ErrEmptyChart
	}
	graph := chart.PieChart{
		Title:  c.Title,
		Width:  r.Height,
		Height: r.Height,
		Values: values,
	}
	return graph.Render(chart.PNG, w)
}

func xLabels(series []query.Series) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range series {
		for _, p := range s.Points {
			if !seen[p.X] {
				seen[p.X] = true
				out = append(out, p.X)
			}
		}
	}
	dataset.SortKeys(out)
	return out
}

func firstSeries(c dashboard.Chart) query.Series {
	if len(c.Series) == 0 {
		return query.Series{}
	}
	return c.Series[0]
}

func seriesName(s query.Series, c dashboard.Chart) string {
	if s.Name != "" {
		return s.Name
	}
	return c.YLabel
}

// padRange widens [lo, hi] by 5% so flat or single-point data still has a visible range
func padRange(lo, hi float64) (float64, float64) {
	if hi < lo {
		lo, hi = hi, lo
	}
	span := hi - lo
	if span == 0 {
		span = math.Max(math.Abs(hi), 1)
	}
	pad := span * 0.05
	if lo != 0 {
		lo -= pad
	}
	return lo, hi + pad
}

func barWidth(total, n int) int {
	w := total / (2 * n)
	switch {
	case w < 10:
		return 10
	case w > 80:
		return 80
	}
	return w
}
