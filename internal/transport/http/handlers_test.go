package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "compfinder/internal/errors"
	"compfinder/internal/exporter"
	"compfinder/internal/infrastructure"
	"compfinder/internal/middleware"
	"compfinder/internal/search"
	"compfinder/internal/sectors"
	"compfinder/internal/services"
	api "compfinder/pkg/contracts/api/v1"
	"compfinder/pkg/contracts/domain"
)

// MockSearchStarter is a mock implementation of SearchStarter
type MockSearchStarter struct {
	mock.Mock
}

func (m *MockSearchStarter) Start(ctx context.Context, req search.Request) (*search.Run, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*search.Run), args.Error(1)
}

// MockResultsReader is a mock implementation of ResultsReader
type MockResultsReader struct {
	mock.Mock
}

func (m *MockResultsReader) Snapshot(ctx context.Context) (domain.DisplaySnapshot, error) {
	args := m.Called()
	return args.Get(0).(domain.DisplaySnapshot), args.Error(1)
}

// MockExportService is a mock implementation of ExportServiceInterface
type MockExportService struct {
	mock.Mock
}

func (m *MockExportService) Export(ctx context.Context, req api.ExportRequest) (api.ExportResponse, error) {
	args := m.Called(req)
	return args.Get(0).(api.ExportResponse), args.Error(1)
}

func (m *MockExportService) Render(ctx context.Context, format string) (*services.Download, error) {
	args := m.Called(format)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Download), args.Error(1)
}

type staticRows []domain.DisplayRow

func (s staticRows) Rows(context.Context) ([]domain.DisplayRow, error) {
	return s, nil
}

func testDeps() (*middleware.Validator, *apierrors.ErrorHandler) {
	logger := infrastructure.DiscardLogger()
	return middleware.NewValidator(logger), apierrors.NewErrorHandler(logger, false)
}

func setupSearchRouter(starter SearchStarter, results ResultsReader) chi.Router {
	validator, errorHandler := testDeps()
	h := NewSearchHandler(starter, results, sectors.Default(), validator, errorHandler, infrastructure.DiscardLogger())

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Get("/api/sectors", h.ListSectors)
	r.Post("/api/search", h.StartSearch)
	r.Get("/api/results", h.GetResults)
	return r
}

func decodeProblem(t *testing.T, body *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var problem map[string]interface{}
	require.NoError(t, json.Unmarshal(body.Bytes(), &problem))
	return problem
}

func TestSearchHandler_ListSectors(t *testing.T) {
	router := setupSearchRouter(&MockSearchStarter{}, &MockResultsReader{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sectors", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp api.SectorsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Sectors, 11)
	assert.Equal(t, "Communication Services", resp.Sectors[0].Name)
	assert.Equal(t, []string{"GOOGL", "META", "DIS"}, resp.Sectors[0].Symbols)
	assert.Equal(t, "Utilities", resp.Sectors[10].Name)
}

func TestSearchHandler_StartSearch(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		request    *search.Request
		run        *search.Run
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "symbols accepted",
			body:       `{"symbols":"aapl, msft"}`,
			request:    &search.Request{Symbols: "aapl, msft"},
			run:        &search.Run{ID: "run-1", Symbols: []string{"AAPL", "MSFT"}},
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "sector accepted",
			body:       `{"sector":"Energy"}`,
			request:    &search.Request{Sector: "Energy"},
			run:        &search.Run{ID: "run-2", Symbols: []string{"XOM", "CVX", "COP"}},
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "no input",
			body:       `{}`,
			request:    &search.Request{},
			err:        search.ErrNoInput,
			wantStatus: http.StatusBadRequest,
			wantCode:   apierrors.CodeNoInput,
		},
		{
			name:       "no symbols",
			body:       `{"symbols":" , "}`,
			request:    &search.Request{Symbols: " , "},
			err:        fmt.Errorf("resolve: %w", search.ErrNoSymbols),
			wantStatus: http.StatusBadRequest,
			wantCode:   apierrors.CodeNoSymbols,
		},
		{
			name:       "search running",
			body:       `{"symbols":"AAPL"}`,
			request:    &search.Request{Symbols: "AAPL"},
			err:        search.ErrSearchInProgress,
			wantStatus: http.StatusConflict,
			wantCode:   apierrors.CodeSearchInProgress,
		},
		{
			name:       "invalid json",
			body:       `{"symbols":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   apierrors.CodeInvalidRequest,
		},
		{
			name:       "sector too long",
			body:       fmt.Sprintf(`{"sector":%q}`, strings.Repeat("x", 65)),
			wantStatus: http.StatusBadRequest,
			wantCode:   apierrors.CodeValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			starter := &MockSearchStarter{}
			if tt.request != nil {
				if tt.run != nil {
					starter.On("Start", *tt.request).Return(tt.run, nil).Once()
				} else {
					starter.On("Start", *tt.request).Return(nil, tt.err).Once()
				}
			}
			router := setupSearchRouter(starter, &MockResultsReader{})

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.run != nil {
				var resp api.SearchResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, tt.run.ID, resp.SearchID)
				assert.Equal(t, tt.run.Symbols, resp.Symbols)
			}
			if tt.wantCode != "" {
				problem := decodeProblem(t, rec.Body)
				assert.Equal(t, tt.wantCode, problem["error_code"])
				assert.Equal(t, float64(tt.wantStatus), problem["status"])
				assert.Equal(t, "/api/search", problem["instance"])
			}
			if tt.request == nil {
				starter.AssertNotCalled(t, "Start", mock.Anything)
			}
			starter.AssertExpectations(t)
		})
	}
}

func TestSearchHandler_GetResults(t *testing.T) {
	snapshot := domain.DisplaySnapshot{
		State:         domain.StateIdle,
		SearchEnabled: true,
		Status:        domain.StatusDone,
		Rows: []domain.DisplayRow{
			{Symbol: "AAPL", MarketCap: "$3,000,000,000,000", ROE: "1.47", ROA: "0.22"},
		},
	}
	results := &MockResultsReader{}
	results.On("Snapshot").Return(snapshot, nil)
	router := setupSearchRouter(&MockSearchStarter{}, results)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/results", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.DisplaySnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, snapshot, got)
}

func TestSearchHandler_GetResultsTimeout(t *testing.T) {
	results := &MockResultsReader{}
	results.On("Snapshot").Return(domain.DisplaySnapshot{}, context.DeadlineExceeded)
	router := setupSearchRouter(&MockSearchStarter{}, results)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/results", nil))

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}

func setupExportRouter(service ExportServiceInterface) chi.Router {
	validator, errorHandler := testDeps()
	h := NewExportHandler(service, validator, errorHandler, infrastructure.DiscardLogger())

	r := chi.NewRouter()
	r.Mount("/api/export", h.Routes())
	return r
}

func TestExportHandler_Export(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		request    *api.ExportRequest
		resp       api.ExportResponse
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "written",
			body:       `{"path":"comps.csv"}`,
			request:    &api.ExportRequest{Path: "comps.csv"},
			resp:       api.ExportResponse{Path: "/tmp/exports/comps.csv", Rows: 3},
			wantStatus: http.StatusOK,
		},
		{
			name:       "cancelled",
			body:       `{"path":""}`,
			request:    &api.ExportRequest{},
			err:        services.ErrExportCancelled,
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "nothing to export",
			body:       `{"path":"comps.csv"}`,
			request:    &api.ExportRequest{Path: "comps.csv"},
			err:        services.ErrNothingToExport,
			wantStatus: http.StatusBadRequest,
			wantCode:   apierrors.CodeNothingToExport,
		},
		{
			name:       "write failure",
			body:       `{"path":"comps.csv"}`,
			request:    &api.ExportRequest{Path: "comps.csv"},
			err:        &services.ExportFailedError{Path: "comps.csv", Err: errors.New("permission denied")},
			wantStatus: http.StatusInternalServerError,
			wantCode:   apierrors.CodeExportFailed,
		},
		{
			name:       "unknown format",
			body:       `{"path":"comps.pdf","format":"pdf"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   apierrors.CodeValidationFailed,
		},
		{
			name:       "nul in path",
			body:       `{"path":"comps\u0000.csv"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   apierrors.CodeValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &MockExportService{}
			if tt.request != nil {
				service.On("Export", *tt.request).Return(tt.resp, tt.err).Once()
			}
			router := setupExportRouter(service)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/export", strings.NewReader(tt.body)))

			assert.Equal(t, tt.wantStatus, rec.Code)
			switch {
			case tt.wantCode != "":
				problem := decodeProblem(t, rec.Body)
				assert.Equal(t, tt.wantCode, problem["error_code"])
				if tt.wantCode == apierrors.CodeExportFailed {
					assert.Contains(t, problem["detail"], "permission denied")
				}
			case tt.wantStatus == http.StatusNoContent:
				assert.Empty(t, rec.Body.String())
			default:
				var resp api.ExportResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, tt.resp, resp)
			}
			service.AssertExpectations(t)
		})
	}
}

func TestExportHandler_Download(t *testing.T) {
	rows := staticRows{
		{Symbol: "AAPL", MarketCap: "$3,000,000,000,000", ROE: "1.47", ROA: "0.22"},
		{Symbol: "MSFT", MarketCap: "N/A", ROE: "0.38", ROA: "0.18"},
	}
	svc := services.NewExportService(rows, nil, "csv", infrastructure.DiscardLogger(), nil)
	download, err := svc.Render(context.Background(), "csv")
	require.NoError(t, err)

	service := &MockExportService{}
	service.On("Render", "csv").Return(download, nil).Once()
	router := setupExportRouter(service)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/export/download?format=csv", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, exporter.NewCSVWriter().ContentType(), rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment; filename=\"comparables-")
	assert.Equal(t, "Company,Market Cap,ROE,ROA\nAAPL,\"$3,000,000,000,000\",1.47,0.22\nMSFT,N/A,0.38,0.18\n", rec.Body.String())
	service.AssertExpectations(t)
}

func TestExportHandler_DownloadErrors(t *testing.T) {
	t.Run("bad format", func(t *testing.T) {
		service := &MockExportService{}
		router := setupExportRouter(service)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/export/download?format=pdf", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, apierrors.CodeValidationFailed, decodeProblem(t, rec.Body)["error_code"])
		service.AssertNotCalled(t, "Render", mock.Anything)
	})

	t.Run("no rows", func(t *testing.T) {
		service := &MockExportService{}
		service.On("Render", "").Return(nil, services.ErrNothingToExport).Once()
		router := setupExportRouter(service)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/export/download", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, apierrors.CodeNothingToExport, decodeProblem(t, rec.Body)["error_code"])
	})
}

type fakeHealth struct {
	ready bool
}

func (f fakeHealth) HealthCheck(context.Context) services.HealthStatus {
	return services.HealthStatus{Status: "ok"}
}

func (f fakeHealth) ReadinessCheck(context.Context) services.HealthStatus {
	if f.ready {
		return services.HealthStatus{Status: "ready"}
	}
	return services.HealthStatus{Status: "not_ready"}
}

func (f fakeHealth) Version() map[string]interface{} {
	return map[string]interface{}{"version": "test"}
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		ready      bool
		path       string
		wantStatus int
		wantBody   string
	}{
		{name: "health", path: "/api/health", wantStatus: http.StatusOK, wantBody: `"status":"ok"`},
		{name: "ready", ready: true, path: "/api/health/ready", wantStatus: http.StatusOK, wantBody: `"status":"ready"`},
		{name: "not ready", path: "/api/health/ready", wantStatus: http.StatusServiceUnavailable, wantBody: `"status":"not_ready"`},
		{name: "version", path: "/api/version", wantStatus: http.StatusOK, wantBody: `"version":"test"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(fakeHealth{ready: tt.ready}, infrastructure.DiscardLogger())
			r := chi.NewRouter()
			r.Get("/api/health", h.HealthCheck)
			r.Get("/api/health/ready", h.ReadinessCheck)
			r.Get("/api/version", h.Version)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestMetricsHandler(t *testing.T) {
	_, errorHandler := testDeps()

	t.Run("disabled", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewMetricsHandler(nil, errorHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("enabled", func(t *testing.T) {
		exporter := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "comps_fetch_total 1\n")
		})
		rec := httptest.NewRecorder()
		NewMetricsHandler(exporter, errorHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "comps_fetch_total")
	})
}

func TestFrontendHandler(t *testing.T) {
	files := fstest.MapFS{
		"index.html": {Data: []byte(`<title>{{.Title}}</title><span>{{.Version}}</span>`)},
		"app.js":     {Data: []byte(`console.log("ok")`)},
	}
	h, err := NewFrontendHandler(files, infrastructure.DiscardLogger())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<title>Comparable Companies Finder</title>")
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app.js", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `console.log("ok")`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing.css", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFrontendHandler_MissingIndex(t *testing.T) {
	_, err := NewFrontendHandler(fstest.MapFS{}, infrastructure.DiscardLogger())
	assert.Error(t, err)
}
