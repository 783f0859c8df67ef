package charts

import (
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/PauloMoekotte/Herkomst-ROC/internal/dashboard"
)

// groupedBar draws one bar per series side by side for every x label.
// Horizontal bars put the labels on the y axis.
func (r *Renderer) groupedBar(w io.Writer, c dashboard.Chart) error {
	labels := xLabels(c.Series)
	if c.Kind == dashboard.HorizontalBar {
		labels = orderedLabels(c)
	}
	if len(labels) == 0 {
		return ErrEmptyChart
	}
	pos := make(map[string]int, len(labels))
	for i, l := range labels {
		pos[l] = i
	}

	p := plot.New()
	p.Title.Text = c.Title
	p.X.Label.Text = c.XLabel
	p.Y.Label.Text = c.YLabel

	horizontal := c.Kind == dashboard.HorizontalBar
	n := len(c.Series)
	width := vg.Points(float64(r.Width) / float64(len(labels)*(n+1)) * 0.6)
	if width < vg.Points(4) {
		width = vg.Points(4)
	}

	for i, s := range c.Series {
		values := make(plotter.Values, len(labels))
		for _, pt := range s.Points {
			if pt.Valid {
				values[pos[pt.X]] = pt.Y
			}
		}
		bars, err := plotter.NewBarChart(values, width)
		if err != nil {
			return fmt.Errorf("bar series %q: %w", s.Name, err)
		}
		bars.Horizontal = horizontal
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = plotutil.Color(i)
		bars.Offset = width * vg.Length(float64(i)-float64(n-1)/2)
		p.Add(bars)
		if s.Name != "" && n > 1 {
			p.Legend.Add(s.Name, bars)
		}
	}

	if horizontal {
		p.NominalY(labels...)
	} else {
		p.NominalX(labels...)
	}
	p.Legend.Top = true
	p.Add(plotter.NewGrid())
	return save(p, w, r.Width, r.Height)
}

// box draws one box per x label and color from precomputed values
func (r *Renderer) box(w io.Writer, c dashboard.Chart) error {
	if len(c.Boxes) == 0 {
		return ErrEmptyChart
	}
	p := plot.New()
	p.Title.Text = c.Title
	p.X.Label.Text = c.XLabel
	p.Y.Label.Text = c.YLabel

	width := vg.Points(float64(r.Width) / float64(len(c.Boxes)+1) * 0.5)
	if width > vg.Points(40) {
		width = vg.Points(40)
	}

	colors := make(map[string]int)
	names := make([]string, len(c.Boxes))
	for i, b := range c.Boxes {
		if len(b.Values) == 0 {
			continue
		}
		bp, err := plotter.NewBoxPlot(width, float64(i), plotter.Values(b.Values))
		if err != nil {
			return fmt.Errorf("box %q: %w", b.X, err)
		}
		ci, ok := colors[b.Color]
		if !ok {
			ci = len(colors)
			colors[b.Color] = ci
		}
		bp.FillColor = plotutil.Color(ci)
		p.Add(bp)
		names[i] = b.X
		if b.Color != "" {
			names[i] = fmt.Sprintf("%s (%s)", b.X, b.Color)
		}
	}
	p.NominalX(names...)
	return save(p, w, r.Width, r.Height)
}

func save(p *plot.Plot, w io.Writer, width, height int) error {
	wt, err := p.WriterTo(vg.Points(float64(width)*0.75), vg.Points(float64(height)*0.75), "png")
	if err != nil {
		return fmt.Errorf("plot writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

// orderedLabels keeps the point order of the first series
func orderedLabels(c dashboard.Chart) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range c.Series {
		for _, p := range s.Points {
			if !seen[p.X] {
				seen[p.X] = true
				out = append(out, p.X)
			}
		}
	}
	return out
}
