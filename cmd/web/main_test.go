package main

import (
	"io/fs"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compfinder/internal/infrastructure"
	handlers "compfinder/internal/transport/http"
	"compfinder/pkg/contracts"
)

func TestFrontendEmbedding(t *testing.T) {
	frontendFS, err := fs.Sub(frontendFiles, "frontend")
	require.NoError(t, err)

	for _, name := range []string{"index.html", "app.js", "style.css"} {
		_, err = fs.Stat(frontendFS, name)
		require.NoError(t, err, name)
	}

	h, err := handlers.NewFrontendHandler(frontendFS, infrastructure.DiscardLogger())
	require.NoError(t, err)

	t.Run("index", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		body := rec.Body.String()
		assert.Contains(t, body, "<title>Comparable Companies Finder</title>")
		assert.Contains(t, body, "v"+contracts.Version)
		assert.Contains(t, body, `id="search-button"`)
		assert.Contains(t, body, `<script src="/app.js"></script>`)
		assert.NotContains(t, body, "{{")
	})

	t.Run("script", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app.js", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "/api/search")
	})
}
