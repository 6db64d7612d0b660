package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/mailpilot/internal/core/domain"
)

// SearchInput is the input schema for the search_knowledge tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the text to search the knowledge base for"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 5)"`
}

// SearchOutput is the output schema for the search_knowledge tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single retrieved chunk.
type SearchResultOutput struct {
	SourceID string  `json:"source_id"`
	Kind     string  `json:"kind"`
	URI      string  `json:"uri,omitempty"`
	Subject  string  `json:"subject,omitempty"`
	Score    float64 `json:"score"`
	Text     string  `json:"text"`
}

// DraftReplyInput is the input schema for the draft_reply tool.
type DraftReplyInput struct {
	MessageID string `json:"message_id,omitempty" jsonschema:"mailbox id of the message to answer; the full body is refetched when set"`
	From      string `json:"from,omitempty" jsonschema:"sender header of the message"`
	Subject   string `json:"subject,omitempty" jsonschema:"subject of the message"`
	Body      string `json:"body" jsonschema:"plain text body of the message to answer"`
}

// DraftReplyOutput is the output schema for the draft_reply tool.
type DraftReplyOutput struct {
	Reply string `json:"reply"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_knowledge",
		Description: "Search the local knowledge base by semantic similarity",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "draft_reply",
		Description: "Draft a grounded reply to an email without sending it",
	}, s.handleDraftReply)
}

// handleSearch handles the search_knowledge tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 5
	}

	results, err := s.ports.Knowledge.Query(ctx, input.Query, limit)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}

	for i := range results {
		rec := results[i].Record
		output.Results[i] = SearchResultOutput{
			SourceID: rec.SourceID,
			Kind:     string(rec.Provenance.Kind),
			URI:      rec.Provenance.URI,
			Subject:  rec.Provenance.Subject,
			Score:    results[i].Score,
			Text:     rec.Text,
		}
	}

	return nil, output, nil
}

// handleDraftReply handles the draft_reply tool invocation.
func (s *Server) handleDraftReply(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DraftReplyInput,
) (*mcp.CallToolResult, DraftReplyOutput, error) {
	if s.ports.Reply == nil {
		return nil, DraftReplyOutput{}, errors.New("mcp: reply service is not configured")
	}
	if input.Body == "" && input.MessageID == "" {
		return nil, DraftReplyOutput{}, errors.New("mcp: body or message_id is required")
	}

	email := domain.Email{
		ID:      input.MessageID,
		From:    input.From,
		Subject: input.Subject,
		Body:    input.Body,
	}

	reply, err := s.ports.Reply.Draft(ctx, email)
	if err != nil {
		return nil, DraftReplyOutput{}, err
	}

	return nil, DraftReplyOutput{Reply: reply}, nil
}
