// Package exporter writes filtered dashboard data as CSV or XLSX.
//
// CSV output is UTF-8 with a header row, an optional BOM for Excel and empty
// fields for missing values. XLSX output keeps numbers as numeric cells.
//
// Example usage:
//
//	exp := exporter.New(exporter.Options{BOMPrefix: true})
//	err := exp.Write(w, exporter.CSV, view)
//
//	// or straight to disk, format picked from the extension
//	err = exp.WriteFile("out/selectie.xlsx", view)
package exporter
