package dashboard

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/PauloMoekotte/Herkomst-ROC/internal/query"
)

// NotAvailable is shown for KPIs without a defined value
const NotAvailable = "N/A"

// FormatThousands truncates f to an integer and groups digits with commas: 12345.9 -> "12,345"
func FormatThousands(f float64) string {
	d := decimal.NewFromFloat(f).Truncate(0)
	s := d.Abs().String()
	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	lead := len(s) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(s[:lead])
	for i := lead; i < len(s); i += 3 {
		b.WriteByte(',')
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatEuro renders an amount with two decimals: 14.1 -> "€ 14.10"
func FormatEuro(f float64) string {
	return "€ " + fixed(f, 2)
}

// FormatPercent renders a percentage with one decimal: 45 -> "45.0%"
func FormatPercent(f float64) string {
	return fixed(f, 1) + "%"
}

// exactExp is the smallest binary exponent of a float64; at this decimal
// exponent every float converts without rounding
const exactExp = -1074

// fixed rounds the exact binary value of f half to even, so 0.15 (stored as
// 0.1499...) gives "0.1" while the exact tie 0.25 gives "0.2"
func fixed(f float64, places int32) string {
	return decimal.NewFromFloatWithExponent(f, exactExp).RoundBank(places).StringFixed(places)
}

// FormatResult formats an aggregate with fn, or returns NotAvailable
func FormatResult(r query.Result, fn func(float64) string) string {
	if !r.Valid {
		return NotAvailable
	}
	return fn(r.Value)
}
