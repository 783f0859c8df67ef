package config

import "time"

// Application constants
const (
	AppName     = "Onderwijsmonitor Twente"
	ServiceName = "onderwijsmonitor"
	EnvPrefix   = "MONITOR"

	// Rate Limiting
	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	// Uploads
	DefaultMaxUploadBytes = 64 << 20 // 64MB per request
	DefaultMaxFiles       = 20

	// Cache Settings
	DefaultCacheTTL     = 1 * time.Hour
	DefaultCacheEntries = 32

	// Dashboards
	DefaultTableLimit = 100
	DefaultTopN       = 15

	// Timeouts
	DefaultRequestTimeout = 60 * time.Second
	WebSocketPingPeriod   = 30 * time.Second
	WebSocketPongWait     = 60 * time.Second

	// Log Settings
	DefaultLogLevel = "info"
	DefaultLogFile  = "logs/app.log"
)

// Version information, set at build time with -ldflags
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)
