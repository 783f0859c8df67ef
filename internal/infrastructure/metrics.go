package infrastructure

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DomainMetrics holds the application-specific instruments. A nil
// *DomainMetrics is valid and records nothing.
type DomainMetrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	// Ingest metrics
	FilesIngested    metric.Int64Counter
	RowsIngested     metric.Int64Counter
	UnparseableCells metric.Int64Counter

	// Cache metrics
	CacheHits   metric.Int64Counter
	CacheMisses metric.Int64Counter

	// Rendering metrics
	ViewRenderDuration metric.Float64Histogram
	ChartsRendered     metric.Int64Counter
	ExportsTotal       metric.Int64Counter

	// Live view metrics
	LiveClients metric.Int64UpDownCounter
}

// CreateDomainMetrics creates application-specific metrics on meter
func CreateDomainMetrics(meter metric.Meter) (*DomainMetrics, error) {
	var (
		m   DomainMetrics
		err error
	)

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.HTTPRequestsTotal, "http_requests_total", "Total number of HTTP requests"},
		{&m.FilesIngested, "ingest_files_total", "Uploaded files by outcome"},
		{&m.RowsIngested, "ingest_rows_total", "Rows read from uploaded files"},
		{&m.UnparseableCells, "normalize_unparseable_cells_total", "Numeric cells that could not be parsed"},
		{&m.CacheHits, "dataset_cache_hits_total", "Dataset cache hits"},
		{&m.CacheMisses, "dataset_cache_misses_total", "Dataset cache misses"},
		{&m.ChartsRendered, "charts_rendered_total", "PNG charts rendered"},
		{&m.ExportsTotal, "exports_total", "Exports written by format"},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, err
		}
	}

	if m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.ViewRenderDuration, err = meter.Float64Histogram(
		"dashboard_render_duration_seconds",
		metric.WithDescription("Dashboard view render duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.HTTPActiveRequests, err = meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Number of active HTTP requests"),
	); err != nil {
		return nil, err
	}
	if m.LiveClients, err = meter.Int64UpDownCounter(
		"live_view_clients",
		metric.WithDescription("Connected live dashboard clients"),
	); err != nil {
		return nil, err
	}

	return &m, nil
}

// RecordHTTPRequest records one finished request
func (m *DomainMetrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// TrackActiveRequest adjusts the in-flight request gauge
func (m *DomainMetrics) TrackActiveRequest(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.HTTPActiveRequests.Add(ctx, delta)
}

// RecordIngest records the outcome of one ingest run
func (m *DomainMetrics) RecordIngest(ctx context.Context, dashboard string, ok, failed, rows, unparseable int) {
	if m == nil {
		return
	}
	d := attribute.String("dashboard", dashboard)
	m.FilesIngested.Add(ctx, int64(ok), metric.WithAttributes(d, attribute.String("outcome", "ok")))
	if failed > 0 {
		m.FilesIngested.Add(ctx, int64(failed), metric.WithAttributes(d, attribute.String("outcome", "error")))
	}
	m.RowsIngested.Add(ctx, int64(rows), metric.WithAttributes(d))
	if unparseable > 0 {
		m.UnparseableCells.Add(ctx, int64(unparseable), metric.WithAttributes(d))
	}
}

// RecordCacheLookup counts a hit or a miss
func (m *DomainMetrics) RecordCacheLookup(ctx context.Context, dashboard string, hit bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("dashboard", dashboard))
	if hit {
		m.CacheHits.Add(ctx, 1, attrs)
		return
	}
	m.CacheMisses.Add(ctx, 1, attrs)
}

// RecordRender records how long building a dashboard view took
func (m *DomainMetrics) RecordRender(ctx context.Context, dashboard string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ViewRenderDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("dashboard", dashboard)))
}

// RecordChart counts a rendered chart
func (m *DomainMetrics) RecordChart(ctx context.Context, dashboard, chart string) {
	if m == nil {
		return
	}
	m.ChartsRendered.Add(ctx, 1, metric.WithAttributes(
		attribute.String("dashboard", dashboard),
		attribute.String("chart", chart),
	))
}

// RecordExport counts an export by format
func (m *DomainMetrics) RecordExport(ctx context.Context, dashboard, format string) {
	if m == nil {
		return
	}
	m.ExportsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("dashboard", dashboard),
		attribute.String("format", format),
	))
}

// TrackLiveClient adjusts the connected live view client count
func (m *DomainMetrics) TrackLiveClient(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.LiveClients.Add(ctx, delta)
}
