// Package app wires the comparable companies finder together and manages its lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration (.env, environment, optional config.yaml)
//	2. Initialize logging and OpenTelemetry
//	3. Build the sector catalog, display loop, websocket hub and Alpha Vantage client once
//	4. Build the search orchestrator and the export and health services on top of them
//	5. Set up HTTP handlers and middleware
//	6. Serve until interrupted
//
// # Usage
//
//	application, err := app.NewApplication(app.WithFrontend(files))
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
//
// # Graceful Shutdown
//
// Run handles SIGINT and SIGTERM. The HTTP server drains first, then the root context is
// cancelled so a running search stops before its next symbol, and finally the display loop,
// the websocket hub and the OpenTelemetry providers are stopped. The package never calls
// os.Exit; main decides how to exit.
package app
