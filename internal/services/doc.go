// Package services implements the application layer between the HTTP and
// WebSocket transports and the dashboard pipeline.
//
// DatasetService runs an upload through ingest, schema validation,
// normalization and column binding, memoizes the resulting dataset under a
// content-derived id, and renders views, exports and chart images from it.
// HealthService reports liveness, readiness and build information.
//
// Services return plain sentinel errors (see errors.go) and the errors of the
// packages they call; the transport maps them to problem responses.
package services
