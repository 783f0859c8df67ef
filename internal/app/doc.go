// Package app wires the dashboard monitor together and manages its lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration (defaults, YAML file, MONITOR_* environment)
//	2. Initialize logging and OpenTelemetry
//	3. Build the dashboard registry and the dataset service
//	4. Start the live view hub and subscribe it to cache invalidations
//	5. Set up middleware, HTTP handlers and the WebSocket route
//	6. Start the HTTP server
//
// # Usage
//
//	app, err := app.NewApplication()
//	if err != nil {
//	    return err
//	}
//	return app.Run()
//
// Run blocks until SIGINT or SIGTERM and then shuts down the server, closes
// live clients, stops the cache sweeper and flushes telemetry. Errors are
// returned to the caller; the package never calls os.Exit.
package app
