// Package driving provides interfaces for primary/inbound adapters
// (CLI, MCP) to invoke core behaviour.
package driving
