// Package config provides configuration management for the monitor service.
//
// # Configuration Sources
//
// Configuration is assembled from the following sources, later ones winning:
//
//	1. Default values
//	2. A YAML file (MONITOR_CONFIG_FILE, config.yaml or configs/config.yaml)
//	3. Environment variables with the MONITOR_ prefix
//
// # Environment Variables
//
// Variables are namespaced by section:
//
//	MONITOR_SERVER_PORT=8080
//	MONITOR_LOGGING_LEVEL=debug
//	MONITOR_CACHE_TTL=30m
//	MONITOR_INGEST_ENCODINGS=utf-8,latin-1
//	MONITOR_SECURITY_ALLOWED_ORIGINS=http://localhost:3000,https://monitor.example.nl
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Tests use config.Default(), which needs no environment or files.
package config
