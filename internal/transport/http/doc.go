// Package http implements the HTTP handlers of the comparable companies finder.
// Handlers stay thin: they decode and validate the request, call a service, and render
// the result with go-chi/render. Domain errors are mapped to internal/errors values and
// written as RFC 7807 problem details by the shared ErrorHandler.
//
// # Routes
//
//	GET  /api/sectors            sector presets in catalog order
//	POST /api/search             start a search (202, 400, 409)
//	GET  /api/results            current display snapshot
//	POST /api/export             write the table to a file (200, 204, 400, 500)
//	GET  /api/export/download    stream the table as csv or xlsx
//	GET  /api/health             liveness
//	GET  /api/health/ready       readiness
//	GET  /api/version            build information
//	GET  /metrics                Prometheus scrape endpoint
//
// The websocket feed lives in internal/websocket; the router that ties everything together
// is assembled in internal/app.
package http
