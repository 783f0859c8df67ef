package services

import (
	"github.com/stretchr/testify/mock"

	"github.com/PauloMoekotte/Herkomst-ROC/internal/cache"
)

// MockClientCounter is a mock for the ClientCounter interface
type MockClientCounter struct {
	mock.Mock
}

func (m *MockClientCounter) ClientCount() int {
	return m.Called().Int(0)
}

// MockCacheStatter is a mock for the CacheStatter interface
type MockCacheStatter struct {
	mock.Mock
}

func (m *MockCacheStatter) CacheStats() cache.Stats {
	return m.Called().Get(0).(cache.Stats)
}

func (m *MockCacheStatter) Dashboards() []DashboardInfo {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]DashboardInfo)
}
