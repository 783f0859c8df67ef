package http

import (
	"context"

	"github.com/PauloMoekotte/Herkomst-ROC/internal/dashboard"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/exporter"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/ingest"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/services"
)

// DatasetServiceInterface defines the dataset operations used by the handlers
type DatasetServiceInterface interface {
	Dashboards() []services.DashboardInfo
	Dashboard(name string) (dashboard.Dashboard, error)
	Load(ctx context.Context, name string, sources []ingest.Source) (*services.DatasetSummary, error)
	Summary(ctx context.Context, name, id string) (*services.DatasetSummary, error)
	Invalidate(ctx context.Context, name, id string) error
	View(ctx context.Context, name, id string, req dashboard.Request) (*dashboard.View, error)
	Export(ctx context.Context, name, id string, req dashboard.Request, format exporter.Format) (*services.Export, error)
	Chart(ctx context.Context, name, id string, req dashboard.Request, chartID string) ([]byte, error)
}
