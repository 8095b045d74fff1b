package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"compfinder/internal/infrastructure"
	"compfinder/pkg/contracts"
	"compfinder/pkg/contracts/domain"
)

// readinessTimeout bounds how long the display loop may take to answer a probe.
const readinessTimeout = 2 * time.Second

// SnapshotSource is the display as seen by health checks.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (domain.DisplaySnapshot, error)
}

// ClientCounter reports connected websocket clients.
type ClientCounter interface {
	ClientCount() int
}

// HealthService provides health check functionality
type HealthService struct {
	display    SnapshotSource
	hub        ClientCounter
	exportsDir string
	startTime  time.Time
	logger     *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a new health service. hub may be nil when no websocket feed runs.
func NewHealthService(display SnapshotSource, hub ClientCounter, exportsDir string, logger *slog.Logger) *HealthService {
	return &HealthService{
		display:    display,
		hub:        hub,
		exportsDir: exportsDir,
		startTime:  time.Now(),
		logger:     infrastructure.WithComponent(logger, "health_service"),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "HealthCheck: performing health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// ReadinessCheck reports whether the display loop answers and the export directory exists.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Services: map[string]interface{}{
			"display":   hs.checkDisplay(ctx),
			"exports":   hs.checkExports(),
			"websocket": hs.checkWebSocket(),
		},
	}

	for _, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status != "ready" {
			status.Status = "not_ready"
			break
		}
	}
	return status
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	info := contracts.GetVersionInfo()
	return map[string]interface{}{
		"version":     info.Version,
		"api_version": info.APIVersion,
		"build_time":  info.BuildTime,
		"git_commit":  info.GitCommit,
		"go_version":  runtime.Version(),
		"os":          runtime.GOOS,
		"arch":        runtime.GOARCH,
		"start_time":  hs.startTime.Format(time.RFC3339),
	}
}

func (hs *HealthService) checkDisplay(ctx context.Context) ServiceHealth {
	if hs.display == nil {
		return ServiceHealth{Status: "not_ready", Message: "display not initialized"}
	}

	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()

	snap, err := hs.display.Snapshot(ctx)
	if err != nil {
		return ServiceHealth{Status: "not_ready", Message: fmt.Sprintf("display unavailable: %v", err)}
	}
	return ServiceHealth{Status: "ready", Message: fmt.Sprintf("state %s, %d rows", snap.State, len(snap.Rows))}
}

func (hs *HealthService) checkExports() ServiceHealth {
	if hs.exportsDir == "" {
		return ServiceHealth{Status: "ready", Message: "exports go to the working directory"}
	}
	info, err := os.Stat(hs.exportsDir)
	if err != nil || !info.IsDir() {
		return ServiceHealth{Status: "not_ready", Message: fmt.Sprintf("exports directory not found: %s", hs.exportsDir)}
	}
	return ServiceHealth{Status: "ready"}
}

func (hs *HealthService) checkWebSocket() ServiceHealth {
	if hs.hub == nil {
		return ServiceHealth{Status: "ready", Message: "websocket feed disabled"}
	}
	return ServiceHealth{Status: "ready", Message: fmt.Sprintf("%d clients", hs.hub.ClientCount())}
}
