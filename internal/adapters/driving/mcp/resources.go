package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for mailpilot resources.
	uriScheme = "mailpilot://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "replies",
		Name:        "replies",
		Description: "Log of sent replies, oldest first",
		MIMEType:    "application/json",
	}, s.handleRepliesResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "emails",
		Name:        "emails",
		Description: "Filtered emails cached by the last poll cycle",
		MIMEType:    "application/json",
	}, s.handleEmailsResource)
}

// handleRepliesResource returns the reply log.
func (s *Server) handleRepliesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.State == nil {
		return emptyJSONResource(req.Params.URI), nil
	}

	entries, err := s.ports.State.LoadReplyLog(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading reply log: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling reply log: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleEmailsResource returns the cached filtered email set.
func (s *Server) handleEmailsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.State == nil {
		return emptyJSONResource(req.Params.URI), nil
	}

	emails, err := s.ports.State.LoadCachedEmails(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading cached emails: %w", err)
	}

	// Strip bodies and attachments; resources list metadata only.
	type emailInfo struct {
		ID      string `json:"id"`
		From    string `json:"from"`
		Subject string `json:"subject"`
		Date    string `json:"date,omitempty"`
	}

	infos := make([]emailInfo, len(emails))
	for i := range emails {
		infos[i] = emailInfo{
			ID:      emails[i].ID,
			From:    emails[i].From,
			Subject: emails[i].Subject,
			Date:    emails[i].Date,
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling emails: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

func emptyJSONResource(uri string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     "[]",
		}},
	}
}
