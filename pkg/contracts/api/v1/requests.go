// Package api contains the HTTP request and response contracts.
package api

import (
	"compfinder/pkg/contracts/domain"
)

// SearchRequest starts a search. Symbols is free text separated by commas or newlines and
// takes precedence over Sector.
type SearchRequest struct {
	Symbols string `json:"symbols" validate:"max=4096"`
	Sector  string `json:"sector" validate:"max=64"`
}

// SearchResponse acknowledges a started search.
type SearchResponse struct {
	SearchID string   `json:"search_id"`
	Symbols  []string `json:"symbols"`
	Status   string   `json:"status"`
}

// ExportRequest writes the displayed rows to Path. An empty Path means the user cancelled.
type ExportRequest struct {
	Path   string `json:"path" validate:"max=1024,safepath"`
	Format string `json:"format" validate:"omitempty,oneof=csv xlsx"`
}

// ExportResponse reports where the export was written.
type ExportResponse struct {
	Path    string `json:"path"`
	Rows    int    `json:"rows"`
	Message string `json:"message"`
}

// SectorsResponse lists the sector presets in catalog order.
type SectorsResponse struct {
	Sectors []domain.Sector `json:"sectors"`
}

// ResultsResponse is the current display content.
type ResultsResponse = domain.DisplaySnapshot
