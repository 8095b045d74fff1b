package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "compfinder/internal/errors"
	"compfinder/internal/infrastructure"
	"compfinder/internal/middleware"
	"compfinder/internal/services"
	api "compfinder/pkg/contracts/api/v1"
)

// ExportHandler writes the result table to disk or streams it to the browser.
type ExportHandler struct {
	service      ExportServiceInterface
	validator    *middleware.Validator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewExportHandler creates an export handler.
func NewExportHandler(service ExportServiceInterface, validator *middleware.Validator, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{
		service:      service,
		validator:    validator,
		errorHandler: errorHandler,
		logger:       infrastructure.WithComponent(logger, "export_handler"),
	}
}

// Routes mounts POST / and GET /download.
func (h *ExportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Export)
	r.Get("/download", h.Download)
	return r
}

// Export handles POST /api/export
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	var req api.ExportRequest
	if err := h.validator.DecodeJSON(w, r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp, err := h.service.Export(r.Context(), req)
	if errors.Is(err, services.ErrExportCancelled) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		h.errorHandler.HandleError(w, r, exportError(err))
		return
	}

	render.JSON(w, r, resp)
}

// Download handles GET /api/export/download?format=csv|xlsx
func (h *ExportHandler) Download(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if err := h.validator.Var("format", format, "omitempty,oneof=csv xlsx"); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	download, err := h.service.Render(r.Context(), format)
	if err != nil {
		h.errorHandler.HandleError(w, r, exportError(err))
		return
	}

	w.Header().Set("Content-Type", download.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	if err := download.Stream(w); err != nil {
		// Headers are gone; all that is left is to log.
		h.logger.ErrorContext(r.Context(), "download stream failed",
			slog.String("filename", download.Filename),
			slog.String("error", err.Error()))
		return
	}

	h.logger.InfoContext(r.Context(), "download served",
		slog.String("filename", download.Filename),
		slog.Int("rows", download.Rows()))
}

func exportError(err error) error {
	var failed *services.ExportFailedError
	switch {
	case errors.Is(err, services.ErrNothingToExport):
		return apierrors.ErrNothingToExport
	case errors.Is(err, services.ErrUnsupportedFormat):
		return apierrors.NewValidationErrors([]apierrors.ValidationError{
			{Field: "format", Message: err.Error()},
		})
	case errors.As(err, &failed):
		return apierrors.ExportFailed(failed)
	default:
		return err
	}
}
