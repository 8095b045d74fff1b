package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"compfinder/pkg/contracts/domain"
)

// CSVWriter writes the result table as comma-separated UTF-8 text.
type CSVWriter struct {
	// BOMPrefix adds a UTF-8 byte order mark for older Excel versions. Off by default
	// so the first line of the file is exactly the header.
	BOMPrefix bool
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter() *CSVWriter {
	return &CSVWriter{}
}

// Format implements Writer.
func (w *CSVWriter) Format() string { return "csv" }

// ContentType implements Writer.
func (w *CSVWriter) ContentType() string { return "text/csv; charset=utf-8" }

// WriteFile writes the header and rows to filePath, replacing any existing file.
func (w *CSVWriter) WriteFile(filePath string, rows []domain.DisplayRow) error {
	slog.Debug("Writing CSV file",
		slog.String("file_path", filePath),
		slog.Int("record_count", len(rows)))

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}

	if err := w.Encode(file, rows); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Encode writes the header and rows to out.
func (w *CSVWriter) Encode(out io.Writer, rows []domain.DisplayRow) error {
	if w.BOMPrefix {
		if _, err := out.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(out)

	if err := writer.Write(domain.ExportHeader); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for i, record := range records(rows) {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
