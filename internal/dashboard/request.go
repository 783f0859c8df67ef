package dashboard

import (
	"net/url"
	"sort"
	"strings"

	"github.com/PauloMoekotte/Herkomst-ROC/internal/dataset"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/schema"
)

// Query parameter names understood by RequestFromQuery
const (
	YearParam    = "year"
	FilterPrefix = "f."
	ParamPrefix  = "p."
)

// YearColumn returns the first year column of the dashboard schema, or ""
func YearColumn(d Dashboard) string {
	for _, f := range d.Schema().Fields {
		if f.Type == schema.Year {
			return f.Name
		}
	}
	return ""
}

// RequestFromQuery builds a render request from URL query values.
// year= restricts the dashboard's year column, f.<column>= any other column
// and p.<id>= sets a render parameter. Repeated keys add values; a key given
// with only empty values selects nothing for that column. Filters are ordered
// by column so equal queries produce equal requests.
func RequestFromQuery(d Dashboard, q url.Values) Request {
	req := Request{Params: map[string]string{}}

	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		vals := nonEmpty(q[k])
		switch {
		case k == YearParam:
			if col := YearColumn(d); col != "" {
				req.Selection = req.Selection.With(col, vals...)
			}
		case strings.HasPrefix(k, FilterPrefix) && len(k) > len(FilterPrefix):
			req.Selection = req.Selection.With(strings.TrimPrefix(k, FilterPrefix), vals...)
		case strings.HasPrefix(k, ParamPrefix) && len(k) > len(ParamPrefix) && len(vals) > 0:
			req.Params[strings.TrimPrefix(k, ParamPrefix)] = vals[len(vals)-1]
		}
	}
	return req
}

func nonEmpty(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Filtered returns the rows of ds that req selects once control defaults are
// applied. This is the record set offered for download.
func Filtered(d Dashboard, ds *Dataset, req Request) (dataset.View, error) {
	if ds.Empty() {
		if ds == nil || ds.Frame == nil {
			return dataset.MustNew().All(), nil
		}
		return ds.Frame.All(), nil
	}
	sel, err := Resolve(d.Controls(ds), req.Selection)
	if err != nil {
		return dataset.View{}, err
	}
	return filtered(ds, sel)
}
