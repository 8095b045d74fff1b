package main

import (
	"context"
	"embed"
	"flag"
	"io/fs"
	"log/slog"
	"os"

	"compfinder/internal/app"
)

// Embedded browser UI
//
//go:embed all:frontend
var frontendFiles embed.FS

func main() {
	openBrowser := flag.Bool("open", true, "open the UI in the default browser once the server is up")
	flag.Parse()

	frontendFS, err := fs.Sub(frontendFiles, "frontend")
	if err != nil {
		slog.Error("Frontend embedding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	application, err := app.NewApplication(app.WithFrontend(frontendFS))
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	application.OpenBrowser = *openBrowser

	if err := application.Run(context.Background()); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
