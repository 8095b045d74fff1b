package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compfinder/internal/config"
	"compfinder/internal/search"
)

func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	return writeConfigWithKey(t, baseURL, "test-key")
}

func writeConfigWithKey(t *testing.T, baseURL, key string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := fmt.Sprintf("alpha_vantage:\n  base_url: %s\n  api_key: %s\n", baseURL, key)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func fakeAlphaVantage(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("symbol") {
		case "AAPL":
			fmt.Fprint(w, `{"MarketCapitalization":"3000000000000","ReturnOnEquityTTM":"1.47","ReturnOnAssetsTTM":"0.22"}`)
		case "XOM":
			fmt.Fprint(w, `{"MarketCapitalization":"450000000000","ReturnOnEquityTTM":"0.2","ReturnOnAssetsTTM":"0.1"}`)
		default:
			fmt.Fprint(w, `{}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRun_PrintsTable(t *testing.T) {
	srv := fakeAlphaVantage(t)
	cfgPath := writeConfig(t, srv.URL+"/query")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-config", cfgPath, "-symbols", "aapl,zzzz"}, &stdout, &stderr)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"Company", "Market", "Cap", "ROE", "ROA"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"AAPL", "$3,000,000,000,000", "1.47", "0.22"}, strings.Fields(lines[1]))
	assert.Contains(t, stderr.String(), "Skipped: ZZZZ (missing_fields)")
	assert.Contains(t, stderr.String(), "Done.")
}

func TestRun_ExportsSector(t *testing.T) {
	srv := fakeAlphaVantage(t)
	cfgPath := writeConfig(t, srv.URL+"/query")
	out := filepath.Join(t.TempDir(), "energy")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-config", cfgPath, "-sector", "Energy", "-out", out}, &stdout, &stderr)
	require.NoError(t, err)

	data, err := os.ReadFile(out + ".csv")
	require.NoError(t, err)
	assert.Equal(t, "Company,Market Cap,ROE,ROA\nXOM,\"$450,000,000,000\",0.2,0.1\n", string(data))
}

func TestRun_Errors(t *testing.T) {
	srv := fakeAlphaVantage(t)
	cfgPath := writeConfig(t, srv.URL+"/query")

	tests := []struct {
		name string
		args []string
		want error
	}{
		{name: "no input", args: []string{"-config", cfgPath}, want: search.ErrNoInput},
		{name: "unknown sector", args: []string{"-config", cfgPath, "-sector", "Crypto"}, want: search.ErrNoSymbols},
		{name: "help", args: []string{"-h"}, want: flag.ErrHelp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := run(context.Background(), tt.args, &stdout, &stderr)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, stdout.String())
		})
	}
}

func TestRun_NothingToExport(t *testing.T) {
	srv := fakeAlphaVantage(t)
	cfgPath := writeConfig(t, srv.URL+"/query")
	out := filepath.Join(t.TempDir(), "none.csv")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-config", cfgPath, "-symbols", "ZZZZ", "-out", out}, &stdout, &stderr)
	assert.Error(t, err)
	assert.NoFileExists(t, out)
}

func TestRun_ListSectors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-list-sectors"}, &stdout, &stderr))

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 11)
	assert.True(t, strings.HasPrefix(lines[0], "Communication Services"))
	assert.Contains(t, lines[0], "GOOGL, META, DIS")
}

func TestRun_HelpDocumentsAPIKey(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-h"}, &stdout, &stderr)
	require.ErrorIs(t, err, flag.ErrHelp)
	assert.Contains(t, stderr.String(), "-symbols")
	assert.Contains(t, stderr.String(), config.APIKeyEnv)
}

func TestRun_DemoKeyWarning(t *testing.T) {
	srv := fakeAlphaVantage(t)

	tests := []struct {
		name     string
		key      string
		wantWarn bool
	}{
		{name: "demo key", key: config.DefaultAPIKey, wantWarn: true},
		{name: "own key", key: "test-key", wantWarn: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfgPath := writeConfigWithKey(t, srv.URL+"/query", tt.key)

			var stdout, stderr bytes.Buffer
			require.NoError(t, run(context.Background(), []string{"-config", cfgPath, "-symbols", "AAPL"}, &stdout, &stderr))
			if tt.wantWarn {
				assert.Contains(t, stderr.String(), config.APIKeyEnv)
			} else {
				assert.NotContains(t, stderr.String(), config.APIKeyEnv)
			}
			assert.Contains(t, stdout.String(), "AAPL")
		})
	}
}
