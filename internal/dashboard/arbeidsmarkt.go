package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/PauloMoekotte/Herkomst-ROC/internal/dataset"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/ingest"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/query"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/schema"
)

const (
	colUitstroomjaar    = "uitstroomjaar"
	colNiveau           = "niveau"
	colLeerweg          = "leerweg"
	colNaam             = "naam"
	colDomein           = "domein"
	colWaarde           = "waarde"
	colGemiddelde       = "gemiddelde"
	colBeroepsopleiding = "beroepsopleiding"

	naamUurloon    = "uurloon werknemer"
	naamUitstroom  = "uitstroom"
	naamDoorstroom = "doorstroom"
	domeinCross    = "cross-over"

	paramBoxX = "box_x"
	paramBoxY = "box_y"
)

var (
	wageKPI = query.KPI{
		Name:   "uurloon_niveau_4",
		Where:  []query.Condition{query.Eq(colNaam, naamUurloon), query.Eq(colNiveau, "niveau 4")},
		Target: colGemiddelde,
		Reduce: query.Mean,
	}
	crossOverKPI = query.KPI{
		Name:   "doorstroom_cross_over",
		Where:  []query.Condition{query.Eq(colDomein, domeinCross), query.Eq(colNaam, naamDoorstroom)},
		Target: colWaarde,
		Reduce: query.Mean,
	}
	outflowKPI = query.KPI{
		Name:   "uitstroom",
		Where:  []query.Condition{query.Eq(colNaam, naamUitstroom)},
		Target: colWaarde,
		Reduce: query.Sum,
	}
)

// Arbeidsmarkt shows the labour market position of graduates from the CBS export
type Arbeidsmarkt struct {
	encodings []ingest.Encoding
}

// NewArbeidsmarkt creates the labour market dashboard
func NewArbeidsmarkt(encodings ...ingest.Encoding) *Arbeidsmarkt {
	return &Arbeidsmarkt{encodings: encodings}
}

func (a *Arbeidsmarkt) Name() string       { return "arbeidsmarkt" }
func (a *Arbeidsmarkt) Title() string      { return "Arbeidsmarktmonitor ROC van Twente" }
func (a *Arbeidsmarkt) ExportName() string { return "arbeidsmarktmonitor_selectie.csv" }

func (a *Arbeidsmarkt) Schema() schema.Schema {
	return schema.Schema{
		Name: a.Name(),
		Fields: []schema.Field{
			{Name: colUitstroomjaar, Type: schema.Year, Required: true},
			{Name: colNiveau, Type: schema.Text, Required: true},
			{Name: colLeerweg, Type: schema.Text, Required: true},
			{Name: colNaam, Type: schema.Text, Required: true, Description: "Indicator name"},
			{Name: colDomein, Type: schema.Text, Required: true},
			{Name: colWaarde, Type: schema.Measure, Required: true},
			{Name: colGemiddelde, Type: schema.Measure, Description: "Average, e.g. hourly wage"},
			{Name: colBeroepsopleiding, Type: schema.Text},
		},
	}
}

func (a *Arbeidsmarkt) ReadOptions() ingest.Options {
	opts := ingest.DefaultOptions()
	opts.Encodings = []ingest.Encoding{ingest.UTF8}
	if len(a.encodings) > 0 {
		opts.Encodings = a.encodings
	}
	return opts
}

func (a *Arbeidsmarkt) Controls(ds *Dataset) []Control {
	if ds.Empty() {
		return nil
	}
	all := ds.Frame.All()
	years := all.SortedUnique(colUitstroomjaar)
	var latest []string
	if len(years) > 0 {
		latest = years[len(years)-1:]
	}
	niveaus := all.Unique(colNiveau)
	leerwegen := all.Unique(colLeerweg)

	yChoices := []string{colWaarde}
	if ds.Columns.Has(colGemiddelde) {
		yChoices = append(yChoices, colGemiddelde)
	}
	columns := ds.Frame.Columns()

	return []Control{
		{ID: "uitstroomjaar", Label: "Selecteer Uitstroomjaar", Column: colUitstroomjaar, Kind: SingleSelect, Choices: years, Default: latest},
		{ID: "niveau", Label: "Niveau", Column: colNiveau, Kind: MultiSelect, Choices: niveaus, Default: niveaus},
		{ID: "leerweg", Label: "Leerweg", Column: colLeerweg, Kind: MultiSelect, Choices: leerwegen, Default: leerwegen},
		{ID: paramBoxX, Label: "Kies X-as", Kind: SingleSelect, Choices: columns, Default: columns[:1], Param: true},
		{ID: paramBoxY, Label: "Kies Y-as", Kind: SingleSelect, Choices: yChoices, Default: yChoices[:1], Param: true},
	}
}

func (a *Arbeidsmarkt) Render(ctx context.Context, ds *Dataset, req Request) (*View, error) {
	view := &View{Dashboard: a.Name(), Title: a.Title(), DatasetID: ds.ID, RenderedAt: time.Now()}
	if ds.Empty() {
		view.Notices = append(view.Notices, "Upload de CBS-export om de monitor te starten.")
		return view, nil
	}

	controls := a.Controls(ds)
	sel, err := Resolve(controls, req.Selection)
	if err != nil {
		return nil, err
	}
	boxX, err := Param(controls, req, paramBoxX)
	if err != nil {
		return nil, err
	}
	boxY, err := Param(controls, req, paramBoxY)
	if err != nil {
		return nil, err
	}

	v, err := filtered(ds, sel)
	if err != nil {
		return nil, err
	}
	view.Selection = sel
	view.Rows = v.Len()

	view.KPIs = []Tile{
		tile(wageKPI.Name, "Gem. Uurloon (Niv 4)", wageKPI.Evaluate(v), FormatEuro),
		tile(crossOverKPI.Name, "Doorstroom Cross-over", crossOverKPI.Evaluate(v), FormatPercent),
		tile(outflowKPI.Name, "Totaal Uitstroom", outflowKPI.Evaluate(v), formatGraduates),
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	charts, notices, err := a.charts(ds, v, boxX, boxY)
	if err != nil {
		return nil, err
	}
	view.Charts = charts
	view.Notices = append(view.Notices, notices...)
	view.Table = NewTable(v, 0)
	return view, nil
}

func (a *Arbeidsmarkt) charts(ds *Dataset, v dataset.View, boxX, boxY string) ([]Chart, []string, error) {
	var (
		charts  []Chart
		notices []string
	)

	// wage trend ignores the sidebar filters
	if ds.Columns.Has(colGemiddelde) {
		wages, err := query.Apply(ds.Frame.All(), query.NewSelection().With(colNaam, naamUurloon))
		if err != nil {
			return nil, nil, err
		}
		groups, err := query.GroupBy(wages, []string{colUitstroomjaar, colNiveau}, colGemiddelde, query.Mean)
		if err != nil {
			return nil, nil, err
		}
		c := seriesChart("uurloon_trend", "Uurloon trend per Niveau", LineChart, groups)
		c.XLabel, c.YLabel = colUitstroomjaar, "Euro (€)"
		charts = append(charts, c)
	}

	outflow, err := query.Apply(v, query.NewSelection().With(colNaam, naamUitstroom))
	if err != nil {
		return nil, nil, err
	}
	domains, err := query.GroupBy(outflow, []string{colDomein}, colWaarde, query.Sum)
	if err != nil {
		return nil, nil, err
	}
	charts = append(charts, seriesChart("domein", "Verdeling Uitstroom per Domein", PieChart, domains))

	cross, err := query.Apply(v, query.NewSelection().With(colDomein, domeinCross))
	if err != nil {
		return nil, nil, err
	}
	if cross.Empty() || !ds.Columns.Has(colBeroepsopleiding) {
		notices = append(notices, "Geen cross-over data beschikbaar voor de huidige selectie.")
	} else {
		pair, err := query.Apply(cross, query.NewSelection().With(colNaam, naamUitstroom, naamDoorstroom))
		if err != nil {
			return nil, nil, err
		}
		groups, err := query.GroupBy(pair, []string{colBeroepsopleiding, colNaam}, colWaarde, query.Sum)
		if err != nil {
			return nil, nil, err
		}
		c := seriesChart("cross_over", "Aantallen en percentages per opleiding", GroupedBarChart, groups)
		c.XLabel, c.YLabel = colBeroepsopleiding, colWaarde
		charts = append(charts, c)
	}

	boxes, err := query.BoxStats(v, boxX, boxY, colNiveau)
	if err != nil {
		return nil, nil, err
	}
	charts = append(charts, Chart{
		ID:     "custom",
		Title:  fmt.Sprintf("Custom Analyse: %s vs %s", boxX, boxY),
		Kind:   BoxChart,
		XLabel: boxX,
		YLabel: boxY,
		Boxes:  boxes,
	})

	return charts, notices, nil
}

// formatGraduates truncates the outflow to a whole count without grouping
func formatGraduates(f float64) string {
	return fmt.Sprintf("%d gediplomeerden", int64(f))
}
