package http

import (
	"context"

	"compfinder/internal/search"
	"compfinder/internal/services"
	api "compfinder/pkg/contracts/api/v1"
	"compfinder/pkg/contracts/domain"
)

// SearchStarter launches searches.
type SearchStarter interface {
	Start(ctx context.Context, req search.Request) (*search.Run, error)
}

// ResultsReader reads what the display currently shows.
type ResultsReader interface {
	Snapshot(ctx context.Context) (domain.DisplaySnapshot, error)
}

// SectorLister lists the sector presets.
type SectorLister interface {
	Sectors() []domain.Sector
}

// ExportServiceInterface defines the export operations used by ExportHandler.
type ExportServiceInterface interface {
	Export(ctx context.Context, req api.ExportRequest) (api.ExportResponse, error)
	Render(ctx context.Context, format string) (*services.Download, error)
}

// HealthServiceInterface defines the health checks used by HealthHandler.
type HealthServiceInterface interface {
	HealthCheck(ctx context.Context) services.HealthStatus
	ReadinessCheck(ctx context.Context) services.HealthStatus
	Version() map[string]interface{}
}
