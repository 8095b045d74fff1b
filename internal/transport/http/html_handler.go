package http

import (
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"compfinder/internal/config"
	"compfinder/internal/infrastructure"
	"compfinder/pkg/contracts"
)

// indexPage is the template rendered for "/".
const indexPage = "index.html"

// pageData is passed to the index template.
type pageData struct {
	Title   string
	Version string
}

// FrontendHandler serves the browser UI from an embedded file system.
type FrontendHandler struct {
	index  *template.Template
	static http.Handler
	logger *slog.Logger
}

// NewFrontendHandler parses index.html from files. Every other file is served as is.
func NewFrontendHandler(files fs.FS, logger *slog.Logger) (*FrontendHandler, error) {
	index, err := template.ParseFS(files, indexPage)
	if err != nil {
		return nil, err
	}
	return &FrontendHandler{
		index:  index,
		static: http.FileServer(http.FS(files)),
		logger: infrastructure.WithComponent(logger, "frontend"),
	}, nil
}

// ServeHTTP serves the index page for "/" and "/index.html" and static assets otherwise.
func (h *FrontendHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/", "/" + indexPage:
		h.serveIndex(w, r)
	default:
		h.static.ServeHTTP(w, r)
	}
}

func (h *FrontendHandler) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	data := pageData{
		Title:   config.AppName,
		Version: contracts.Version,
	}
	if err := h.index.Execute(w, data); err != nil {
		h.logger.ErrorContext(r.Context(), "Error rendering page", slog.String("error", err.Error()))
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
	}
}
