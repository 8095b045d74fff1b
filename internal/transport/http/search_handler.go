package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	apierrors "compfinder/internal/errors"
	"compfinder/internal/infrastructure"
	"compfinder/internal/middleware"
	"compfinder/internal/search"
	api "compfinder/pkg/contracts/api/v1"
)

// SearchHandler serves sector presets, search requests and the result table.
type SearchHandler struct {
	searches     SearchStarter
	results      ResultsReader
	sectors      SectorLister
	validator    *middleware.Validator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewSearchHandler creates a search handler.
func NewSearchHandler(searches SearchStarter, results ResultsReader, sectors SectorLister, validator *middleware.Validator, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		searches:     searches,
		results:      results,
		sectors:      sectors,
		validator:    validator,
		errorHandler: errorHandler,
		logger:       infrastructure.WithComponent(logger, "search_handler"),
	}
}

// ListSectors handles GET /api/sectors
func (h *SearchHandler) ListSectors(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, api.SectorsResponse{Sectors: h.sectors.Sectors()})
}

// StartSearch handles POST /api/search. The search itself runs in the background; clients
// follow it through GET /api/results or the websocket feed.
func (h *SearchHandler) StartSearch(w http.ResponseWriter, r *http.Request) {
	var req api.SearchRequest
	if err := h.validator.DecodeJSON(w, r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	run, err := h.searches.Start(r.Context(), search.Request{Symbols: req.Symbols, Sector: req.Sector})
	if err != nil {
		h.errorHandler.HandleError(w, r, searchError(err))
		return
	}

	h.logger.InfoContext(r.Context(), "search accepted",
		slog.String("search_id", run.ID),
		slog.Int("symbols", len(run.Symbols)))

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, api.SearchResponse{
		SearchID: run.ID,
		Symbols:  run.Symbols,
		Status:   "accepted",
	})
}

// GetResults handles GET /api/results
func (h *SearchHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.results.Snapshot(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, snapshot)
}

func searchError(err error) error {
	switch {
	case errors.Is(err, search.ErrNoInput):
		return apierrors.ErrNoInput
	case errors.Is(err, search.ErrNoSymbols):
		return apierrors.ErrNoSymbols
	case errors.Is(err, search.ErrSearchInProgress):
		return apierrors.ErrSearchInProgress
	default:
		return err
	}
}
