package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/PauloMoekotte/Herkomst-ROC/internal/cache"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/charts"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/dashboard"
	apierrors "github.com/PauloMoekotte/Herkomst-ROC/internal/errors"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/exporter"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/infrastructure"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/ingest"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/normalize"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/schema"
)

// Dataset status values reported in summaries
const (
	StatusOK     = "ok"
	StatusNoData = "no_data"
)

// DatasetOptions configures a DatasetService
type DatasetOptions struct {
	MaxFiles    int
	CacheTTL    time.Duration
	MaxEntries  int
	Exporter    exporter.Options
	ChartWidth  int
	ChartHeight int
}

// DashboardInfo describes a dashboard to clients
type DashboardInfo struct {
	Name       string        `json:"name"`
	Title      string        `json:"title"`
	Schema     schema.Schema `json:"schema"`
	YearColumn string        `json:"year_column,omitempty"`
	Exportable bool          `json:"exportable"`
	HasDefault bool          `json:"has_default"`
}

// FileErrorInfo is a skipped file in a summary
type FileErrorInfo struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// DatasetSummary is the client view of a loaded dataset
type DatasetSummary struct {
	ID         string              `json:"id"`
	Dashboard  string              `json:"dashboard"`
	Status     string              `json:"status"`
	Message    string              `json:"message,omitempty"`
	Rows       int                 `json:"rows"`
	Columns    []string            `json:"columns"`
	Files      []ingest.FileInfo   `json:"files"`
	FileErrors []FileErrorInfo     `json:"file_errors,omitempty"`
	Coercion   *normalize.Report   `json:"coercion,omitempty"`
	Controls   []dashboard.Control `json:"controls"`
	BuiltIn    bool                `json:"built_in"`
	Cached     bool                `json:"cached"`
	LoadedAt   time.Time           `json:"loaded_at"`
}

// Export is a rendered download
type Export struct {
	FileName    string
	ContentType string
	Rows        int
	Data        []byte
}

// DatasetService loads, caches and renders dashboard datasets
type DatasetService struct {
	registry *dashboard.Registry
	cache    *cache.Cache[*dashboard.Dataset]
	exporter *exporter.Exporter
	renderer *charts.Renderer
	metrics  *infrastructure.DomainMetrics
	maxFiles int
	logger   *slog.Logger

	mu        sync.RWMutex
	listeners []func(id string)
}

// NewDatasetService creates the service. metrics may be nil.
func NewDatasetService(registry *dashboard.Registry, opts DatasetOptions, metrics *infrastructure.DomainMetrics, logger *slog.Logger) *DatasetService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &DatasetService{
		registry: registry,
		cache:    cache.New[*dashboard.Dataset](opts.CacheTTL, opts.MaxEntries),
		exporter: exporter.New(opts.Exporter),
		renderer: charts.NewRenderer(opts.ChartWidth, opts.ChartHeight),
		metrics:  metrics,
		maxFiles: opts.MaxFiles,
		logger:   infrastructure.WithComponent(logger, "dataset_service"),
	}
	s.cache.OnEvict(s.notify)
	return s
}

// Close stops the cache sweeper
func (s *DatasetService) Close() {
	s.cache.Stop()
}

// OnInvalidate registers fn to run with the id of every dataset that leaves
// the cache, whether expired, evicted or invalidated
func (s *DatasetService) OnInvalidate(fn func(id string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *DatasetService) notify(key string) {
	s.mu.RLock()
	listeners := append([]func(string){}, s.listeners...)
	s.mu.RUnlock()

	id := datasetID(key)
	for _, fn := range listeners {
		fn(id)
	}
}

// Dashboards lists the served dashboards
func (s *DatasetService) Dashboards() []DashboardInfo {
	all := s.registry.All()
	out := make([]DashboardInfo, 0, len(all))
	for _, d := range all {
		_, hasDefault := d.(dashboard.Defaulter)
		out = append(out, DashboardInfo{
			Name:       d.Name(),
			Title:      d.Title(),
			Schema:     d.Schema(),
			YearColumn: dashboard.YearColumn(d),
			Exportable: d.ExportName() != "",
			HasDefault: hasDefault,
		})
	}
	return out
}

// Dashboard returns a dashboard by name
func (s *DatasetService) Dashboard(name string) (dashboard.Dashboard, error) {
	return s.registry.Get(name)
}

// Load runs sources through the pipeline for the named dashboard. The same
// files in the same order map to the same id and are processed once.
// Files that fail to decode are reported in the summary; an upload in which
// no file loads yields a no_data summary. Missing required columns fail the
// whole load and nothing is cached.
func (s *DatasetService) Load(ctx context.Context, name string, sources []ingest.Source) (*DatasetSummary, error) {
	d, err := s.registry.Get(name)
	if err != nil {
		return nil, err
	}
	if s.maxFiles > 0 && len(sources) > s.maxFiles {
		return nil, fmt.Errorf("%w: %d files, at most %d allowed", ErrTooManyFiles, len(sources), s.maxFiles)
	}

	ctx, span := infrastructure.StartSpan(ctx, "dataset.load",
		attribute.String("dashboard", name),
		attribute.Int("files", len(sources)))
	defer span.End()

	files := make([]cache.File, len(sources))
	for i, src := range sources {
		files[i] = cache.File{Name: src.Name, Data: src.Data}
	}
	key := cache.Key(name, files)

	ds, hit, err := s.cache.GetOrLoad(ctx, key, func(ctx context.Context) (*dashboard.Dataset, error) {
		res, err := ingest.NewReader(d.ReadOptions(), s.logger).Read(ctx, sources)
		if err != nil {
			return nil, err
		}
		ds, err := dashboard.Prepare(d, key, res)
		if err != nil {
			s.metrics.RecordIngest(ctx, name, len(res.Files), len(res.Errors), 0, 0)
			return nil, apierrors.NewParsingError("uploaded files do not fit the "+name+" dashboard", err).
				WithContext("dashboard", name)
		}
		s.metrics.RecordIngest(ctx, name, len(res.Files), len(res.Errors), ds.Frame.Len(), ds.Report.Unparseable())
		return ds, nil
	})
	s.metrics.RecordCacheLookup(ctx, name, hit)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		infrastructure.WithError(s.logger, err).WarnContext(ctx, "Dataset load failed",
			slog.String("dashboard", name),
			slog.Int("files", len(sources)))
		return nil, err
	}

	s.logger.InfoContext(ctx, "Dataset loaded",
		slog.String("dashboard", name),
		slog.String("dataset_id", ds.ID),
		slog.Int("rows", ds.Frame.Len()),
		slog.Bool("cached", hit))

	summary := s.summarize(d, ds)
	summary.Cached = hit
	return summary, nil
}

// Get returns a loaded dataset. The id "default" addresses the built-in data
// of dashboards that ship with it.
func (s *DatasetService) Get(ctx context.Context, name, id string) (*dashboard.Dataset, error) {
	d, err := s.registry.Get(name)
	if err != nil {
		return nil, err
	}

	if id == dashboard.DefaultDatasetID {
		def, ok := d.(dashboard.Defaulter)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no built-in data", ErrDatasetNotFound, name)
		}
		ds, hit, err := s.cache.GetOrLoad(ctx, defaultKey(name), func(context.Context) (*dashboard.Dataset, error) {
			return def.Default()
		})
		s.metrics.RecordCacheLookup(ctx, name, hit)
		return ds, err
	}

	ds, ok := s.cache.Get(id)
	s.metrics.RecordCacheLookup(ctx, name, ok)
	if !ok || ds.Dashboard != name {
		return nil, fmt.Errorf("%w: %s/%s", ErrDatasetNotFound, name, id)
	}
	return ds, nil
}

// Summary describes a loaded dataset
func (s *DatasetService) Summary(ctx context.Context, name, id string) (*DatasetSummary, error) {
	ds, err := s.Get(ctx, name, id)
	if err != nil {
		return nil, err
	}
	d, _ := s.registry.Get(name)
	summary := s.summarize(d, ds)
	summary.Cached = true
	return summary, nil
}

// Invalidate drops a dataset from the cache
func (s *DatasetService) Invalidate(ctx context.Context, name, id string) error {
	if _, err := s.registry.Get(name); err != nil {
		return err
	}
	key := id
	if id == dashboard.DefaultDatasetID {
		key = defaultKey(name)
	} else if ds, ok := s.cache.Get(id); !ok || ds.Dashboard != name {
		return fmt.Errorf("%w: %s/%s", ErrDatasetNotFound, name, id)
	}
	if !s.cache.Invalidate(key) {
		return fmt.Errorf("%w: %s/%s", ErrDatasetNotFound, name, id)
	}
	s.logger.InfoContext(ctx, "Dataset invalidated",
		slog.String("dashboard", name),
		slog.String("dataset_id", id))
	return nil
}

// View renders the dashboard for a selection
func (s *DatasetService) View(ctx context.Context, name, id string, req dashboard.Request) (*dashboard.View, error) {
	d, err := s.registry.Get(name)
	if err != nil {
		return nil, err
	}
	ds, err := s.Get(ctx, name, id)
	if err != nil {
		return nil, err
	}

	ctx, span := infrastructure.StartSpan(ctx, "dashboard.render",
		attribute.String("dashboard", name),
		attribute.String("dataset_id", id))
	defer span.End()

	start := time.Now()
	view, err := d.Render(ctx, ds, req)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	s.metrics.RecordRender(ctx, name, time.Since(start))
	return view, nil
}

// Export renders the filtered record set of a selection as CSV or XLSX
func (s *DatasetService) Export(ctx context.Context, name, id string, req dashboard.Request, format exporter.Format) (*Export, error) {
	d, err := s.registry.Get(name)
	if err != nil {
		return nil, err
	}
	if d.ExportName() == "" {
		return nil, fmt.Errorf("%w: %s", ErrExportUnavailable, name)
	}
	ds, err := s.Get(ctx, name, id)
	if err != nil {
		return nil, err
	}
	v, err := dashboard.Filtered(d, ds, req)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := s.exporter.Write(&buf, format, v); err != nil {
		return nil, err
	}
	s.metrics.RecordExport(ctx, name, string(format))
	s.logger.InfoContext(ctx, "Dataset exported",
		slog.String("dashboard", name),
		slog.String("dataset_id", id),
		slog.String("format", string(format)),
		slog.Int("rows", v.Len()))

	return &Export{
		FileName:    format.FileName(d.ExportName()),
		ContentType: format.ContentType(),
		Rows:        v.Len(),
		Data:        buf.Bytes(),
	}, nil
}

// Chart renders one chart of the view for a selection as PNG
func (s *DatasetService) Chart(ctx context.Context, name, id string, req dashboard.Request, chartID string) ([]byte, error) {
	view, err := s.View(ctx, name, id, req)
	if err != nil {
		return nil, err
	}
	c, err := view.Chart(chartID)
	if err != nil {
		return nil, err
	}
	data, err := s.renderer.PNG(c)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrChartUnavailable, chartID, err)
	}
	s.metrics.RecordChart(ctx, name, chartID)
	return data, nil
}

// CacheStats reports dataset cache usage
func (s *DatasetService) CacheStats() cache.Stats {
	return s.cache.GetStats()
}

func (s *DatasetService) summarize(d dashboard.Dashboard, ds *dashboard.Dataset) *DatasetSummary {
	summary := &DatasetSummary{
		ID:        datasetID(ds.ID),
		Dashboard: ds.Dashboard,
		Status:    StatusOK,
		Rows:      ds.Frame.Len(),
		Columns:   ds.Frame.Columns(),
		Files:     ds.Files,
		Coercion:  ds.Report,
		Controls:  d.Controls(ds),
		BuiltIn:   ds.BuiltIn,
		LoadedAt:  ds.LoadedAt,
	}
	for _, fe := range ds.FileErrors {
		summary.FileErrors = append(summary.FileErrors, FileErrorInfo{File: fe.File, Error: fe.Err.Error()})
	}
	if ds.Empty() {
		summary.Status = StatusNoData
		summary.Message = "Geen bruikbare gegevens gevonden in de geüploade bestanden."
	}
	return summary
}

const defaultSuffix = ":" + dashboard.DefaultDatasetID

func defaultKey(name string) string {
	return name + defaultSuffix
}

// datasetID maps a cache key back to the id clients use
func datasetID(key string) string {
	if len(key) > len(defaultSuffix) && key[len(key)-len(defaultSuffix):] == defaultSuffix {
		return dashboard.DefaultDatasetID
	}
	return key
}
