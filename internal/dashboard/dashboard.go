package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/PauloMoekotte/Herkomst-ROC/internal/dataset"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/ingest"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/normalize"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/query"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/schema"
)

var (
	ErrUnknownDashboard = errors.New("unknown dashboard")
	ErrInvalidSelection = errors.New("invalid selection")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrUnknownChart     = errors.New("unknown chart")
)

// Dashboard turns a prepared dataset and a selection into a rendered view
type Dashboard interface {
	Name() string
	Title() string
	Schema() schema.Schema
	ReadOptions() ingest.Options
	// Controls lists the filter controls with choices taken from ds
	Controls(ds *Dataset) []Control
	Render(ctx context.Context, ds *Dataset, req Request) (*View, error)
	// ExportName is the download file name of the filtered data, or "" when export is not offered
	ExportName() string
}

// Defaulter is implemented by dashboards that ship with built-in data
type Defaulter interface {
	Default() (*Dataset, error)
}

// ControlKind tells a client how to present a control
type ControlKind string

const (
	MultiSelect  ControlKind = "multiselect"
	SingleSelect ControlKind = "select"
)

// Control is a filter or chart option offered to the user
type Control struct {
	ID      string      `json:"id"`
	Label   string      `json:"label"`
	Column  string      `json:"column,omitempty"`
	Kind    ControlKind `json:"kind"`
	Choices []string    `json:"choices"`
	Default []string    `json:"default"`
	// Param marks a control that sets a render parameter rather than a filter
	Param bool `json:"param,omitempty"`
}

// Request is one render of a dashboard
type Request struct {
	Selection query.Selection   `json:"selection"`
	Params    map[string]string `json:"params,omitempty" validate:"dive,keys,min=1,max=64,endkeys,max=256"`
}

// Tile is a rendered KPI
type Tile struct {
	ID        string   `json:"id"`
	Label     string   `json:"label"`
	Value     string   `json:"value"`
	Delta     string   `json:"delta,omitempty"`
	Available bool     `json:"available"`
	Raw       *float64 `json:"raw,omitempty"`
}

// ChartKind selects how a chart is drawn
type ChartKind string

const (
	LineChart       ChartKind = "line"
	BarChart        ChartKind = "bar"
	HorizontalBar   ChartKind = "hbar"
	GroupedBarChart ChartKind = "grouped_bar"
	PieChart        ChartKind = "pie"
	BoxChart        ChartKind = "box"
)

// Chart is the chart-ready data of one visual
type Chart struct {
	ID     string         `json:"id"`
	Title  string         `json:"title"`
	Kind   ChartKind      `json:"kind"`
	XLabel string         `json:"x_label,omitempty"`
	YLabel string         `json:"y_label,omitempty"`
	Series []query.Series `json:"series,omitempty"`
	Boxes  []query.Box    `json:"boxes,omitempty"`
	YMin   *float64       `json:"y_min,omitempty"`
	YMax   *float64       `json:"y_max,omitempty"`
	Notice string         `json:"notice,omitempty"`
}

// Empty reports whether the chart has nothing to draw
func (c Chart) Empty() bool {
	if len(c.Boxes) > 0 {
		return false
	}
	for _, s := range c.Series {
		if len(s.Points) > 0 {
			return false
		}
	}
	return true
}

// Table is the detail table of a view
type Table struct {
	Columns   []string          `json:"columns"`
	Rows      [][]dataset.Value `json:"rows"`
	Total     int               `json:"total"`
	Truncated bool              `json:"truncated"`
}

// NewTable renders at most limit rows of v; limit <= 0 means all rows
func NewTable(v dataset.View, limit int) Table {
	head := v
	if limit > 0 {
		head = v.Head(limit)
	}
	rows := make([][]dataset.Value, head.Len())
	for i := range rows {
		rows[i] = head.Row(i)
	}
	return Table{
		Columns:   v.Columns(),
		Rows:      rows,
		Total:     v.Len(),
		Truncated: head.Len() < v.Len(),
	}
}

// View is a fully rendered dashboard
type View struct {
	Dashboard  string          `json:"dashboard"`
	Title      string          `json:"title"`
	DatasetID  string          `json:"dataset_id"`
	Selection  query.Selection `json:"selection"`
	Rows       int             `json:"rows"`
	KPIs       []Tile          `json:"kpis"`
	Charts     []Chart         `json:"charts"`
	Table      Table           `json:"table"`
	Notices    []string        `json:"notices,omitempty"`
	RenderedAt time.Time       `json:"rendered_at"`
}

// Chart returns the chart with the given id
func (v *View) Chart(id string) (Chart, error) {
	for _, c := range v.Charts {
		if c.ID == id {
			return c, nil
		}
	}
	return Chart{}, fmt.Errorf("%w: %s", ErrUnknownChart, id)
}

// Dataset is a validated, normalized record set bound to a dashboard schema
type Dataset struct {
	ID         string
	Dashboard  string
	Frame      *dataset.Frame
	Columns    *schema.Bound
	Report     *normalize.Report
	Files      []ingest.FileInfo
	FileErrors []*ingest.FileError
	LoadedAt   time.Time
	BuiltIn    bool
}

// Empty reports whether the dataset has no rows
func (d *Dataset) Empty() bool {
	return d == nil || d.Frame == nil || d.Frame.Len() == 0
}

// Prepare validates the loaded record set against the dashboard schema, applies
// the normalization rules and binds the columns. An empty record set is returned
// as an empty dataset without validation so callers can show a no-data state.
func Prepare(d Dashboard, id string, res *ingest.Result) (*Dataset, error) {
	ds := &Dataset{
		ID:         id,
		Dashboard:  d.Name(),
		Frame:      res.Frame,
		Files:      res.Files,
		FileErrors: res.Errors,
		LoadedAt:   time.Now(),
		Report:     &normalize.Report{Columns: map[string]*normalize.ColumnReport{}},
	}
	if res.Empty() {
		if ds.Frame == nil {
			ds.Frame = dataset.MustNew()
		}
		return ds, nil
	}

	s := d.Schema()
	if err := s.Validate(res.Frame); err != nil {
		return nil, err
	}
	frame, report := normalize.Apply(res.Frame, s.Rules())
	bound, err := s.Bind(frame)
	if err != nil {
		return nil, err
	}
	ds.Frame = frame
	ds.Columns = bound
	ds.Report = report
	return ds, nil
}

// Resolve completes sel with control defaults for every filter control the
// request leaves unset, and checks single-select controls carry one value.
func Resolve(controls []Control, sel query.Selection) (query.Selection, error) {
	out := sel
	for _, c := range controls {
		if c.Param || c.Column == "" {
			continue
		}
		vals, ok := sel.Values(c.Column)
		if !ok {
			out = out.With(c.Column, c.Default...)
			continue
		}
		if c.Kind == SingleSelect && len(vals) > 1 {
			return sel, fmt.Errorf("%w: %s accepts a single value", ErrInvalidSelection, c.Label)
		}
	}
	return out, nil
}

// Param returns the request parameter for a param control, falling back to its default
func Param(controls []Control, req Request, id string) (string, error) {
	for _, c := range controls {
		if c.ID != id || !c.Param {
			continue
		}
		v, ok := req.Params[id]
		if !ok || v == "" {
			if len(c.Default) > 0 {
				return c.Default[0], nil
			}
			return "", nil
		}
		for _, choice := range c.Choices {
			if choice == v {
				return v, nil
			}
		}
		return "", fmt.Errorf("%w: %s=%q", ErrInvalidParameter, id, v)
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidParameter, id)
}

// Registry holds the dashboards served by the application
type Registry struct {
	byName map[string]Dashboard
}

// NewRegistry indexes dashboards by name
func NewRegistry(dashboards ...Dashboard) *Registry {
	r := &Registry{byName: make(map[string]Dashboard, len(dashboards))}
	for _, d := range dashboards {
		r.byName[d.Name()] = d
	}
	return r
}

// Get returns a dashboard by name
func (r *Registry) Get(name string) (Dashboard, error) {
	d, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDashboard, name)
	}
	return d, nil
}

// All returns the dashboards ordered by name
func (r *Registry) All() []Dashboard {
	out := make([]Dashboard, 0, len(r.byName))
	for _, d := range r.byName {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

func filtered(ds *Dataset, sel query.Selection) (dataset.View, error) {
	v, err := query.Apply(ds.Frame.All(), sel)
	if err != nil {
		return dataset.View{}, fmt.Errorf("%w: %v", ErrInvalidSelection, err)
	}
	return v, nil
}

func tile(id, label string, r query.Result, fn func(float64) string) Tile {
	t := Tile{ID: id, Label: label, Value: FormatResult(r, fn), Available: r.Valid}
	if r.Valid {
		v := r.Value
		t.Raw = &v
	}
	return t
}

func seriesChart(id, title string, kind ChartKind, groups []query.Group) Chart {
	return Chart{ID: id, Title: title, Kind: kind, Series: query.Pivot(groups)}
}
