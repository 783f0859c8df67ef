package services

import "errors"

// Dataset service errors
var (
	ErrDatasetNotFound   = errors.New("dataset not found")
	ErrTooManyFiles      = errors.New("too many files")
	ErrExportUnavailable = errors.New("export not offered for this dashboard")
	ErrChartUnavailable  = errors.New("chart has no data for this selection")
)
