package services

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"compfinder/internal/config"
	"compfinder/internal/infrastructure"
	api "compfinder/pkg/contracts/api/v1"
	"compfinder/pkg/contracts/domain"
)

type staticRows struct {
	rows []domain.DisplayRow
	err  error
}

func (s staticRows) Rows(context.Context) ([]domain.DisplayRow, error) {
	return s.rows, s.err
}

func threeRows() []domain.DisplayRow {
	return []domain.DisplayRow{
		{Symbol: "AAPL", MarketCap: "$3,000,000,000,000", ROE: "1.47", ROA: "0.22"},
		{Symbol: "MSFT", MarketCap: "N/A", ROE: "0.38", ROA: "0.18"},
		{Symbol: "NVDA", MarketCap: "$1,200,000,000,000", ROE: "0.9", ROA: "0.45"},
	}
}

func newExportService(rows RowSource, paths *config.Paths) *ExportService {
	return NewExportService(rows, paths, config.FormatCSV, infrastructure.DiscardLogger(), nil)
}

func TestExport_CSV(t *testing.T) {
	dir := t.TempDir()
	svc := newExportService(staticRows{rows: threeRows()}, nil)

	target := filepath.Join(dir, "comps.csv")
	resp, err := svc.Export(context.Background(), api.ExportRequest{Path: target})
	require.NoError(t, err)
	assert.Equal(t, target, resp.Path)
	assert.Equal(t, 3, resp.Rows)
	assert.Contains(t, resp.Message, target)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Company,Market Cap,ROE,ROA", lines[0])
	assert.Equal(t, `AAPL,"$3,000,000,000,000",1.47,0.22`, lines[1])
	assert.Equal(t, "MSFT,N/A,0.38,0.18", lines[2])
	assert.Equal(t, `NVDA,"$1,200,000,000,000",0.9,0.45`, lines[3])
}

func TestExport_AddsExtension(t *testing.T) {
	dir := t.TempDir()
	svc := newExportService(staticRows{rows: threeRows()}, nil)

	resp, err := svc.Export(context.Background(), api.ExportRequest{Path: filepath.Join(dir, "comps")})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "comps.csv"), resp.Path)
	assert.FileExists(t, resp.Path)
}

func TestExport_RelativePathUsesExportsDir(t *testing.T) {
	paths := config.NewPaths(t.TempDir(), "")
	require.NoError(t, paths.EnsureDirectories())
	svc := newExportService(staticRows{rows: threeRows()}, paths)

	resp, err := svc.Export(context.Background(), api.ExportRequest{Path: "energy.csv"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(paths.ExportsDir, "energy.csv"), resp.Path)
	assert.FileExists(t, resp.Path)
}

func TestExport_XLSX(t *testing.T) {
	dir := t.TempDir()
	svc := newExportService(staticRows{rows: threeRows()}, nil)

	resp, err := svc.Export(context.Background(), api.ExportRequest{Path: filepath.Join(dir, "comps"), Format: "xlsx"})
	require.NoError(t, err)
	assert.Equal(t, ".xlsx", filepath.Ext(resp.Path))

	f, err := excelize.OpenFile(resp.Path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Comparables")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, domain.ExportHeader, rows[0])
}

func TestExport_EmptyTableCreatesNoFile(t *testing.T) {
	dir := t.TempDir()
	svc := newExportService(staticRows{}, nil)

	target := filepath.Join(dir, "empty.csv")
	_, err := svc.Export(context.Background(), api.ExportRequest{Path: target})
	assert.ErrorIs(t, err, ErrNothingToExport)
	assert.NoFileExists(t, target)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExport_EmptyPathIsCancel(t *testing.T) {
	svc := newExportService(staticRows{rows: threeRows()}, nil)

	_, err := svc.Export(context.Background(), api.ExportRequest{Path: "   "})
	assert.ErrorIs(t, err, ErrExportCancelled)
}

func TestExport_UnsupportedFormat(t *testing.T) {
	svc := newExportService(staticRows{rows: threeRows()}, nil)

	_, err := svc.Export(context.Background(), api.ExportRequest{Path: filepath.Join(t.TempDir(), "x"), Format: "pdf"})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExport_WriteFailure(t *testing.T) {
	dir := t.TempDir()
	svc := newExportService(staticRows{rows: threeRows()}, nil)

	// a directory cannot be opened as a file
	_, err := svc.Export(context.Background(), api.ExportRequest{Path: dir + string(filepath.Separator) + "."})

	var failed *ExportFailedError
	require.True(t, errors.As(err, &failed), "got %v", err)
	assert.NotEmpty(t, failed.Err.Error())
	assert.Contains(t, err.Error(), "failed to export data")
}

func TestExport_RowSourceError(t *testing.T) {
	svc := newExportService(staticRows{err: context.Canceled}, nil)

	_, err := svc.Export(context.Background(), api.ExportRequest{Path: "x.csv"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRender(t *testing.T) {
	svc := newExportService(staticRows{rows: threeRows()}, nil)

	dl, err := svc.Render(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 3, dl.Rows())
	assert.True(t, strings.HasSuffix(dl.Filename, ".csv"))
	assert.Equal(t, "text/csv; charset=utf-8", dl.ContentType)

	var buf bytes.Buffer
	require.NoError(t, dl.Stream(&buf))
	assert.True(t, strings.HasPrefix(buf.String(), "Company,Market Cap,ROE,ROA\n"))
}

func TestRender_Errors(t *testing.T) {
	_, err := newExportService(staticRows{}, nil).Render(context.Background(), "csv")
	assert.ErrorIs(t, err, ErrNothingToExport)

	_, err = newExportService(staticRows{rows: threeRows()}, nil).Render(context.Background(), "txt")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
