package dashboard

import (
	"context"
	"time"

	"github.com/PauloMoekotte/Herkomst-ROC/internal/ingest"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/query"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/schema"
)

const (
	colJaar        = "Jaar"
	colInstelling  = "MBO naam instelling"
	colAantal      = "Aantal"
	colHerkomst    = "Herkomst naam instelling"
	colMBONiveau   = "MBO niveau"
	colMBOLeerweg  = "MBO leerweg"
	herkomstExport = "gefilterde_mbo_data.csv"
)

// preferredInstitutions are preselected when present in the data
var preferredInstitutions = []string{"ROC van Twente", "Zone.college"}

// HerkomstOptions tunes the herkomst dashboard
type HerkomstOptions struct {
	TableLimit int
	TopN       int
	Encodings  []ingest.Encoding
}

// Herkomst analyses inflow from secondary schools into regional MBO institutions
type Herkomst struct {
	opts HerkomstOptions
}

// NewHerkomst creates the herkomst dashboard. Zero options fall back to 100 table rows and a top 15.
func NewHerkomst(opts HerkomstOptions) *Herkomst {
	if opts.TableLimit <= 0 {
		opts.TableLimit = 100
	}
	if opts.TopN <= 0 {
		opts.TopN = 15
	}
	return &Herkomst{opts: opts}
}

func (h *Herkomst) Name() string       { return "herkomst" }
func (h *Herkomst) Title() string      { return "Monitor Herkomst MBO Twente" }
func (h *Herkomst) ExportName() string { return herkomstExport }

func (h *Herkomst) Schema() schema.Schema {
	return schema.Schema{
		Name: h.Name(),
		Fields: []schema.Field{
			{Name: colJaar, Type: schema.Year, Required: true, Description: "Cohort year"},
			{Name: colInstelling, Type: schema.Text, Required: true, Description: "Receiving MBO institution"},
			{Name: colAantal, Type: schema.Count, Required: true, Description: "Number of students"},
			{Name: colHerkomst, Type: schema.Text, Description: "Supplying secondary school"},
			{Name: colMBONiveau, Type: schema.Text},
			{Name: colMBOLeerweg, Type: schema.Text},
		},
	}
}

func (h *Herkomst) ReadOptions() ingest.Options {
	opts := ingest.DefaultOptions()
	if len(h.opts.Encodings) > 0 {
		opts.Encodings = h.opts.Encodings
	}
	return opts
}

func (h *Herkomst) Controls(ds *Dataset) []Control {
	if ds.Empty() {
		return nil
	}
	all := ds.Frame.All()
	years := all.SortedUnique(colJaar)
	institutions := all.SortedUnique(colInstelling)

	var defaults []string
	for _, p := range preferredInstitutions {
		for _, inst := range institutions {
			if inst == p {
				defaults = append(defaults, p)
				break
			}
		}
	}
	if len(defaults) == 0 {
		defaults = institutions[:min(2, len(institutions))]
	}

	return []Control{
		{ID: "jaar", Label: "Selecteer Jaren", Column: colJaar, Kind: MultiSelect, Choices: years, Default: years},
		{ID: "instelling", Label: "MBO Instellingen", Column: colInstelling, Kind: MultiSelect, Choices: institutions, Default: defaults},
	}
}

func (h *Herkomst) Render(ctx context.Context, ds *Dataset, req Request) (*View, error) {
	view := &View{Dashboard: h.Name(), Title: h.Title(), DatasetID: ds.ID, RenderedAt: time.Now()}
	if ds.Empty() {
		view.Notices = append(view.Notices, "De geüploade bestanden konden niet worden verwerkt of zijn leeg.")
		return view, nil
	}

	sel, err := Resolve(h.Controls(ds), req.Selection)
	if err != nil {
		return nil, err
	}
	v, err := filtered(ds, sel)
	if err != nil {
		return nil, err
	}
	view.Selection = sel
	view.Rows = v.Len()

	years, _ := sel.Values(colJaar)
	institutions, _ := sel.Values(colInstelling)
	// an empty selection still totals a valid 0
	total, err := query.Reduce(v, colAantal, query.Sum)
	if err != nil {
		return nil, err
	}
	view.KPIs = []Tile{
		tile("totaal_instroom", "Totaal Instroom (selectie)", total, FormatThousands),
		tile("aantal_instellingen", "Aantal Instellingen", query.Result{Value: float64(len(institutions)), Valid: true}, FormatThousands),
		tile("aantal_cohorten", "Aantal Cohorten", query.Result{Value: float64(len(years)), Valid: true}, FormatThousands),
	}

	if v.Empty() {
		view.Notices = append(view.Notices, "Geen data beschikbaar voor de geselecteerde filters.")
	} else {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		trend, err := query.GroupBy(v, []string{colJaar, colInstelling}, colAantal, query.Sum)
		if err != nil {
			return nil, err
		}
		c := seriesChart("trend", "Instroom per mbo-instelling over de jaren", LineChart, trend)
		c.XLabel, c.YLabel = colJaar, colAantal
		view.Charts = append(view.Charts, c)

		if ds.Columns.Has(colHerkomst) {
			top, err := query.GroupBy(v, []string{colHerkomst}, colAantal, query.Sum)
			if err != nil {
				return nil, err
			}
			query.SortByValue(top, true)
			c := seriesChart("toelevering", "Top 15 Toeleverende Scholen", HorizontalBar, query.Top(top, h.opts.TopN))
			c.XLabel, c.YLabel = colAantal, colHerkomst
			view.Charts = append(view.Charts, c)
		}

		if ds.Columns.Has(colMBONiveau) {
			lvl, err := query.GroupBy(v, []string{colMBONiveau}, colAantal, query.Sum)
			if err != nil {
				return nil, err
			}
			view.Charts = append(view.Charts, seriesChart("niveau", "Instroom per Niveau", PieChart, lvl))
		}

		if ds.Columns.Has(colMBOLeerweg) {
			lw, err := query.GroupBy(v, []string{colMBOLeerweg}, colAantal, query.Sum)
			if err != nil {
				return nil, err
			}
			c := seriesChart("leerweg", "BOL vs BBL", BarChart, lw)
			c.XLabel, c.YLabel = colMBOLeerweg, colAantal
			view.Charts = append(view.Charts, c)
		}
	}

	view.Table = NewTable(v, h.opts.TableLimit)
	return view, nil
}
