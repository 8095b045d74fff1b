package services

import (
	"errors"
	"fmt"
)

// Export errors
var (
	// ErrNothingToExport means the table is empty. No file is created.
	ErrNothingToExport = errors.New("no data to export")

	// ErrExportCancelled means the user chose no destination. It is a silent abort.
	ErrExportCancelled = errors.New("export cancelled")

	// ErrUnsupportedFormat means the requested export format is unknown.
	ErrUnsupportedFormat = errors.New("unsupported export format")
)

// ExportFailedError reports an export that could not be written.
type ExportFailedError struct {
	Path string
	Err  error
}

func (e *ExportFailedError) Error() string {
	return fmt.Sprintf("failed to export data to %s: %v", e.Path, e.Err)
}

func (e *ExportFailedError) Unwrap() error {
	return e.Err
}
