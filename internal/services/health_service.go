package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/PauloMoekotte/Herkomst-ROC/internal/cache"
	"github.com/PauloMoekotte/Herkomst-ROC/internal/infrastructure"
)

// ClientCounter reports connected live-view clients
type ClientCounter interface {
	ClientCount() int
}

// CacheStatter reports dataset cache usage
type CacheStatter interface {
	CacheStats() cache.Stats
	Dashboards() []DashboardInfo
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	commit    string
	buildTime string
	datasets  CacheStatter
	clients   ClientCounter
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                       `json:"status"`
	Timestamp time.Time                    `json:"timestamp"`
	Version   string                       `json:"version"`
	Runtime   *infrastructure.RuntimeStats `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth     `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// VersionInfo describes the running build
type VersionInfo struct {
	Version   string    `json:"version"`
	Commit    string    `json:"commit,omitempty"`
	BuildTime string    `json:"build_time,omitempty"`
	GoVersion string    `json:"go_version"`
	OS        string    `json:"os"`
	Arch      string    `json:"arch"`
	StartTime time.Time `json:"start_time"`
}

// NewHealthService creates a health service. clients may be nil when the
// live view is not served.
func NewHealthService(version, commit, buildTime string, datasets CacheStatter, clients ClientCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = infrastructure.WithComponent(logger, "health_service")

	logger.Info("HealthService initialized",
		slog.String("version", version),
		slog.String("commit", commit),
		slog.String("build_time", buildTime))

	return &HealthService{
		version:   version,
		commit:    commit,
		buildTime: buildTime,
		datasets:  datasets,
		clients:   clients,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health with per-component details
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	status := hs.ReadinessCheck(ctx)
	if status.Status == "ready" {
		status.Status = "ok"
	} else {
		status.Status = "degraded"
	}
	stats := infrastructure.ReadRuntimeStats(hs.startTime)
	status.Runtime = &stats

	hs.logger.DebugContext(ctx, "HealthCheck: completed",
		slog.String("status", status.Status),
		slog.Int("goroutines", stats.Goroutines))
	return status
}

// ReadinessCheck reports whether the service can answer dashboard requests
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]ServiceHealth{
			"datasets":  hs.checkDatasets(),
			"websocket": hs.checkWebSocket(),
		},
	}

	for _, sh := range status.Services {
		if sh.Status != "ready" {
			status.Status = "not_ready"
			break
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	stats := infrastructure.ReadRuntimeStats(hs.startTime)
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime:   &stats,
	}
}

// Version returns version information
func (hs *HealthService) Version() VersionInfo {
	return VersionInfo{
		Version:   hs.version,
		Commit:    hs.commit,
		BuildTime: hs.buildTime,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		StartTime: hs.startTime,
	}
}

func (hs *HealthService) checkDatasets() ServiceHealth {
	if hs.datasets == nil {
		return ServiceHealth{Status: "not_ready", Message: "dataset service not initialized"}
	}
	if len(hs.datasets.Dashboards()) == 0 {
		return ServiceHealth{Status: "not_ready", Message: "no dashboards registered"}
	}
	return ServiceHealth{Status: "ready", Details: hs.datasets.CacheStats()}
}

func (hs *HealthService) checkWebSocket() ServiceHealth {
	if hs.clients == nil {
		return ServiceHealth{Status: "ready", Message: "live view disabled"}
	}
	return ServiceHealth{
		Status:  "ready",
		Details: map[string]int{"clients": hs.clients.ClientCount()},
	}
}
