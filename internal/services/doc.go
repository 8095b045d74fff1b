// Package services implements the business logic behind the HTTP handlers and the CLI.
//
// # Available Services
//
//	- ExportService: writes the displayed rows to a CSV or XLSX file, or streams them
//	- HealthService: reports liveness, readiness and version information
//
// # Error Handling
//
// Services return sentinel errors (ErrNothingToExport, ErrExportCancelled,
// ErrUnsupportedFormat) and *ExportFailedError; handlers translate them into API errors.
package services
