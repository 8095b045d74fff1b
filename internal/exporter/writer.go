package exporter

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"compfinder/pkg/contracts/domain"
)

// Writer serializes the displayed rows in one file format.
type Writer interface {
	Format() string
	ContentType() string
	WriteFile(filePath string, rows []domain.DisplayRow) error
	Encode(out io.Writer, rows []domain.DisplayRow) error
}

// ForFormat returns the writer for "csv" or "xlsx". An empty format means csv.
func ForFormat(format string) (Writer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "csv":
		return NewCSVWriter(), nil
	case "xlsx":
		return NewXLSXWriter(), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %q", format)
	}
}

// WithExtension appends ".<format>" when filePath has no extension.
func WithExtension(filePath, format string) string {
	if filepath.Ext(filePath) != "" {
		return filePath
	}
	return filePath + "." + format
}
