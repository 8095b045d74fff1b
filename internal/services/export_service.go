package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"compfinder/internal/config"
	"compfinder/internal/exporter"
	"compfinder/internal/infrastructure"
	api "compfinder/pkg/contracts/api/v1"
	"compfinder/pkg/contracts/domain"
)

// RowSource provides the rows currently shown to the user.
type RowSource interface {
	Rows(ctx context.Context) ([]domain.DisplayRow, error)
}

// ExportService writes the displayed rows to disk or streams them as a download.
type ExportService struct {
	rows          RowSource
	paths         *config.Paths
	defaultFormat string
	logger        *slog.Logger
	metrics       *infrastructure.BusinessMetrics
}

// NewExportService creates an export service. Relative paths resolve against paths'
// exports directory; a nil paths leaves them relative to the working directory.
func NewExportService(rows RowSource, paths *config.Paths, defaultFormat string, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *ExportService {
	if defaultFormat == "" {
		defaultFormat = config.FormatCSV
	}
	return &ExportService{
		rows:          rows,
		paths:         paths,
		defaultFormat: strings.ToLower(defaultFormat),
		logger:        infrastructure.WithComponent(logger, "export_service"),
		metrics:       metrics,
	}
}

// Export writes the current rows to req.Path. The row check comes first so an empty table
// never creates a file. An empty path aborts with ErrExportCancelled. A path without an
// extension gets one for the chosen format.
func (s *ExportService) Export(ctx context.Context, req api.ExportRequest) (api.ExportResponse, error) {
	rows, err := s.rows.Rows(ctx)
	if err != nil {
		return api.ExportResponse{}, fmt.Errorf("reading displayed rows: %w", err)
	}
	if len(rows) == 0 {
		s.logger.InfoContext(ctx, "Export skipped, nothing to export")
		return api.ExportResponse{}, ErrNothingToExport
	}

	target := strings.TrimSpace(req.Path)
	if target == "" {
		s.logger.DebugContext(ctx, "Export cancelled, no destination")
		return api.ExportResponse{}, ErrExportCancelled
	}

	writer, err := s.writerFor(req.Format)
	if err != nil {
		return api.ExportResponse{}, err
	}

	if s.paths != nil {
		target = s.paths.GetExportPath(target)
	}
	target = exporter.WithExtension(target, writer.Format())

	err = writer.WriteFile(target, rows)
	s.metrics.RecordExport(ctx, writer.Format(), err)
	if err != nil {
		s.logger.ErrorContext(ctx, "Export failed",
			slog.String("path", target),
			slog.String("error", err.Error()))
		return api.ExportResponse{}, &ExportFailedError{Path: target, Err: err}
	}

	s.logger.InfoContext(ctx, "Data exported",
		slog.String("path", target),
		slog.String("format", writer.Format()),
		slog.Int("rows", len(rows)))

	return api.ExportResponse{
		Path:    target,
		Rows:    len(rows),
		Message: fmt.Sprintf("Data exported successfully to %s", target),
	}, nil
}

// Download is an export ready to be streamed.
type Download struct {
	Filename    string
	ContentType string

	rows   []domain.DisplayRow
	writer exporter.Writer
}

// Rows reports how many rows the download holds.
func (d *Download) Rows() int {
	return len(d.rows)
}

// Stream writes the export to out.
func (d *Download) Stream(out io.Writer) error {
	return d.writer.Encode(out, d.rows)
}

// Render prepares the current rows for streaming in format.
func (s *ExportService) Render(ctx context.Context, format string) (*Download, error) {
	writer, err := s.writerFor(format)
	if err != nil {
		return nil, err
	}

	rows, err := s.rows.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading displayed rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNothingToExport
	}

	s.metrics.RecordExport(ctx, writer.Format(), nil)
	return &Download{
		Filename:    fmt.Sprintf("comparables-%s.%s", time.Now().Format("20060102-150405"), writer.Format()),
		ContentType: writer.ContentType(),
		rows:        rows,
		writer:      writer,
	}, nil
}

func (s *ExportService) writerFor(format string) (exporter.Writer, error) {
	if strings.TrimSpace(format) == "" {
		format = s.defaultFormat
	}
	writer, err := exporter.ForFormat(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return writer, nil
}
