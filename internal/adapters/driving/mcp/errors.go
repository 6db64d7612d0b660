// Package mcp provides an MCP (Model Context Protocol) server adapter for
// mailpilot. It exposes knowledge base search and reply drafting to
// MCP-compatible AI assistants.
package mcp

import "errors"

// ErrMissingKnowledgeService is returned when the knowledge service is not provided.
var ErrMissingKnowledgeService = errors.New("mcp: knowledge service is required")
