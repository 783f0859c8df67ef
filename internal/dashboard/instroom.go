package dashboard

import (
	"context"
	"time"

	"github.com/PauloMoekotte/Herkomst-ROC/internal/dataset"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/ingest"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/query"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/schema"
)

const (
	colCohort  = "Cohort"
	colWerkend = "Werkend (%)"
	colSector  = "Sector"

	// DefaultDatasetID addresses the built-in report figures
	DefaultDatasetID = "default"
)

// report figures for the cohorts 2018/2019 to 2021/2022
var (
	bestemmingColumns = []string{"Leerweg_Niveau", "Werkend (%)", "Onderwijs (%)", "Overig (%)", "Gem. Bruto Uurloon (€)"}
	bestemmingRows    = []struct {
		label  string
		values [4]float64
	}{
		{"BOL Niveau 1", [4]float64{45, 35, 20, 12.50}},
		{"BOL Niveau 2", [4]float64{70, 20, 10, 13.20}},
		{"BOL Niveau 3", [4]float64{78, 15, 7, 14.10}},
		{"BOL Niveau 4", [4]float64{50, 45, 5, 14.80}},
		{"BBL (Alle niv.)", [4]float64{94, 3, 3, 16.50}},
	}
	sectorRows = []struct {
		sector  string
		werkend float64
	}{
		{"Techniek & ICT", 92},
		{"Zorg & Welzijn", 89},
		{"Bouw & Infra", 88},
		{"Voedsel & Natuur", 75},
		{"Econ & Admin", 68},
	}
	trendRows = []struct {
		cohort  string
		werkend float64
	}{
		{"2018/2019", 83},
		{"2019/2020", 81},
		{"2020/2021", 86},
		{"2021/2022", 88},
	}
	instroomTiles = []Tile{
		{ID: "werkend_bbl", Label: "Werkend BBL", Value: "94%", Delta: "+2%", Available: true},
		{ID: "werkend_bol", Label: "Werkend BOL (gemiddeld)", Value: "82%", Delta: "-1%", Available: true},
		{ID: "doorstroom_bol_4", Label: "Doorstroom BOL Niv. 4", Value: "45%", Delta: "0%", Available: true},
	}
)

// Instroom is the management overview of graduate labour market participation.
// It renders built-in report figures; an uploaded cohort file replaces the trend.
type Instroom struct{}

// NewInstroom creates the report dashboard
func NewInstroom() *Instroom { return &Instroom{} }

func (d *Instroom) Name() string       { return "instroom" }
func (d *Instroom) Title() string      { return "Managementoverzicht – Arbeidsmarktpositie ROC van Twente" }
func (d *Instroom) ExportName() string { return "" }

func (d *Instroom) Schema() schema.Schema {
	return schema.Schema{
		Name: d.Name(),
		Fields: []schema.Field{
			{Name: colCohort, Type: schema.Text},
			{Name: colWerkend, Type: schema.Measure},
		},
	}
}

func (d *Instroom) ReadOptions() ingest.Options {
	return ingest.Options{Delimiter: ',', Encodings: []ingest.Encoding{ingest.UTF8}, InferNumbers: true}
}

func (d *Instroom) Controls(*Dataset) []Control { return nil }

// Default returns the built-in trend figures as a dataset
func (d *Instroom) Default() (*Dataset, error) {
	frame := dataset.MustNew(colCohort, colWerkend)
	for _, r := range trendRows {
		if err := frame.Append(dataset.Text(r.cohort), dataset.Number(r.werkend)); err != nil {
			return nil, err
		}
	}
	ds, err := Prepare(d, DefaultDatasetID, &ingest.Result{Frame: frame})
	if err != nil {
		return nil, err
	}
	ds.BuiltIn = true
	return ds, nil
}

func (d *Instroom) Render(ctx context.Context, ds *Dataset, req Request) (*View, error) {
	view := &View{
		Dashboard:  d.Name(),
		Title:      d.Title(),
		DatasetID:  ds.ID,
		KPIs:       append([]Tile(nil), instroomTiles...),
		RenderedAt: time.Now(),
	}

	sectors := make([]query.Group, len(sectorRows))
	for i, r := range sectorRows {
		sectors[i] = query.Group{Keys: []string{r.sector}, Value: r.werkend, Valid: true, Rows: 1}
	}
	query.SortByValue(sectors, false)
	sector := seriesChart("sector", "Arbeidsmarktparticipatie per Sector", HorizontalBar, sectors)
	sector.XLabel, sector.YLabel = colWerkend, colSector
	view.Charts = append(view.Charts, sector)

	trendSource := ds
	if ds.Empty() || !ds.Columns.Has(colCohort) || !ds.Columns.Has(colWerkend) {
		if !ds.BuiltIn {
			view.Notices = append(view.Notices, "Data succesvol ingeladen; het bestand bevat geen kolommen Cohort en Werkend (%), de rapportagecijfers worden getoond.")
		}
		var err error
		if trendSource, err = d.Default(); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	trend, err := query.GroupBy(trendSource.Frame.All(), []string{colCohort}, colWerkend, query.Mean)
	if err != nil {
		return nil, err
	}
	lo, hi := 70.0, 100.0
	c := seriesChart("trend", "Trend Arbeidsmarktparticipatie (Totaal)", LineChart, trend)
	c.XLabel, c.YLabel = colCohort, colWerkend
	c.YMin, c.YMax = &lo, &hi
	view.Charts = append(view.Charts, c)

	table := dataset.MustNew(bestemmingColumns...)
	for _, r := range bestemmingRows {
		row := []dataset.Value{dataset.Text(r.label)}
		for _, f := range r.values {
			row = append(row, dataset.Number(f))
		}
		if err := table.Append(row...); err != nil {
			return nil, err
		}
	}
	view.Table = NewTable(table.All(), 0)
	view.Rows = table.Len()
	return view, nil
}
