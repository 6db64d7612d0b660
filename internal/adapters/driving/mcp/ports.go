package mcp

import (
	"github.com/custodia-labs/mailpilot/internal/core/ports/driven"
	"github.com/custodia-labs/mailpilot/internal/core/ports/driving"
)

// Ports aggregates all port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Knowledge provides knowledge base search.
	Knowledge driving.KnowledgeService

	// Reply assembles grounded reply drafts.
	Reply driving.ReplyService

	// State reads the reply log and cached email set for resources.
	State driven.ReplyStateStore
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Knowledge == nil {
		return ErrMissingKnowledgeService
	}
	// Reply and State are optional
	return nil
}
