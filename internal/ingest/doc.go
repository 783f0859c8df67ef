// Package ingest reads uploaded delimited files into a dataset.Frame.
//
// Each source is decoded with the first encoding that accepts it (UTF-8, then
// Latin-1 by default), split on the configured delimiter and concatenated with
// the other sources. A source that fails is reported in Result.Errors and does
// not stop the others. Files ending in .xlsx are read from their first sheet.
package ingest
