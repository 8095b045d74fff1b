package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains the directories the application writes to.
type Paths struct {
	ExecutableDir string
	DataDir       string
	ExportsDir    string
	LogsDir       string
}

// GetPaths returns the application paths relative to the executable location.
// A non-empty exportDir overrides the default exports directory.
func GetPaths(exportDir string) (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}

	return NewPaths(filepath.Dir(exe), exportDir), nil
}

// NewPaths lays out the directory tree under baseDir.
//
//	<base>/
//	  ├── data/
//	  │   └── exports/   (CSV / XLSX exports)
//	  └── logs/
func NewPaths(baseDir, exportDir string) *Paths {
	dataDir := filepath.Join(baseDir, "data")
	if exportDir == "" {
		exportDir = filepath.Join(dataDir, "exports")
	} else if !filepath.IsAbs(exportDir) {
		exportDir = filepath.Join(baseDir, exportDir)
	}

	return &Paths{
		ExecutableDir: baseDir,
		DataDir:       dataDir,
		ExportsDir:    exportDir,
		LogsDir:       filepath.Join(baseDir, "logs"),
	}
}

// EnsureDirectories creates all application directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.ExportsDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// GetExportPath resolves an export destination. Absolute paths are returned as-is,
// relative ones land in the exports directory.
func (p *Paths) GetExportPath(filename string) string {
	if filepath.IsAbs(filename) {
		return filename
	}
	return filepath.Join(p.ExportsDir, filename)
}

// GetLogPath returns the full path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// LogPathResolution logs all resolved paths for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	logger.Info("Path resolution",
		slog.String("executable_dir", p.ExecutableDir),
		slog.String("data_dir", p.DataDir),
		slog.String("exports_dir", p.ExportsDir),
		slog.String("logs_dir", p.LogsDir))
}

// FileExists checks if a file exists at the given path
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
