// Package app wires the survey dashboard together and manages its lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration (defaults, YAML file, ERGO_* environment)
//	2. Initialize logging and OpenTelemetry
//	3. Build the survey pipeline and the configured source
//	4. Start the WebSocket hub and create the dashboard and health services
//	5. Set up HTTP handlers and middleware
//	6. Create the HTTP server
//
// # Usage
//
//	application, err := app.NewApplication("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// Run waits for SIGINT or SIGTERM, then drains in-flight requests, closes
// WebSocket clients with a going-away frame and flushes telemetry.
package app
