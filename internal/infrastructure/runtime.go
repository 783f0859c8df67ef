package infrastructure

import (
	"runtime"
	"time"
)

// RuntimeStats is a point-in-time snapshot of the Go runtime
type RuntimeStats struct {
	Goroutines    int     `json:"goroutines"`
	HeapAllocMB   float64 `json:"heap_alloc_mb"`
	SysMB         float64 `json:"sys_mb"`
	GCCount       uint32  `json:"gc_count"`
	LastGCPauseMs float64 `json:"last_gc_pause_ms"`
	CPUCount      int     `json:"cpu_count"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// ReadRuntimeStats collects runtime statistics for a process started at start
func ReadRuntimeStats(start time.Time) RuntimeStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return RuntimeStats{
		Goroutines:    runtime.NumGoroutine(),
		HeapAllocMB:   float64(mem.HeapAlloc) / 1024 / 1024,
		SysMB:         float64(mem.Sys) / 1024 / 1024,
		GCCount:       mem.NumGC,
		LastGCPauseMs: float64(mem.PauseNs[(mem.NumGC+255)%256]) / 1e6,
		CPUCount:      runtime.NumCPU(),
		UptimeSeconds: time.Since(start).Seconds(),
	}
}
