package http

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/PauloMoekotte/Herkomst-ROC/internal/dashboard"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/exporter"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/ingest"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/services"
)

// MockDatasetService is a mock implementation of DatasetServiceInterface
type MockDatasetService struct {
	mock.Mock
}

func (m *MockDatasetService) Dashboards() []services.DashboardInfo {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]services.DashboardInfo)
}

func (m *MockDatasetService) Dashboard(name string) (dashboard.Dashboard, error) {
	args := m.Called(name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(dashboard.Dashboard), args.Error(1)
}

func (m *MockDatasetService) Load(ctx context.Context, name string, sources []ingest.Source) (*services.DatasetSummary, error) {
	args := m.Called(name, sources)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.DatasetSummary), args.Error(1)
}

func (m *MockDatasetService) Summary(ctx context.Context, name, id string) (*services.DatasetSummary, error) {
	args := m.Called(name, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.DatasetSummary), args.Error(1)
}

func (m *MockDatasetService) Invalidate(ctx context.Context, name, id string) error {
	return m.Called(name, id).Error(0)
}

func (m *MockDatasetService) View(ctx context.Context, name, id string, req dashboard.Request) (*dashboard.View, error) {
	args := m.Called(name, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dashboard.View), args.Error(1)
}

func (m *MockDatasetService) Export(ctx context.Context, name, id string, req dashboard.Request, format exporter.Format) (*services.Export, error) {
	args := m.Called(name, id, req, format)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Export), args.Error(1)
}

func (m *MockDatasetService) Chart(ctx context.Context, name, id string, req dashboard.Request, chartID string) ([]byte, error) {
	args := m.Called(name, id, req, chartID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockHealthService is a mock implementation of HealthServiceInterface
type MockHealthService struct {
	mock.Mock
}

func (m *MockHealthService) HealthCheck(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

func (m *MockHealthService) ReadinessCheck(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

func (m *MockHealthService) LivenessCheck(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

func (m *MockHealthService) Version() services.VersionInfo {
	return m.Called().Get(0).(services.VersionInfo)
}
