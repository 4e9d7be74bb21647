package mcp

import (
	"github.com/SerialSamurai/BUTLER-NEW/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the MCP
// server. A single injection point for dependency injection.
type Ports struct {
	// Query answers natural-language questions with ranked passages.
	Query driving.QueryService

	// Admin lists documents. Optional; the list tool is skipped when nil.
	Admin driving.AdminService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Query == nil {
		return ErrMissingQueryService
	}
	return nil
}
