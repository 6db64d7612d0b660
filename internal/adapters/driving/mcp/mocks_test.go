package mcp

import (
	"context"

	"github.com/custodia-labs/mailpilot/internal/core/domain"
)

// mockKnowledgeService is a mock implementation of driving.KnowledgeService.
type mockKnowledgeService struct {
	results []domain.ScoredRecord
	records []domain.ChunkRecord
	err     error

	lastQuery string
	lastTopN  int
}

func (m *mockKnowledgeService) AddDocuments(
	_ context.Context,
	_ []domain.IngestDocument,
) (domain.IngestResult, error) {
	return domain.IngestResult{}, m.err
}

func (m *mockKnowledgeService) QueryByEmbedding(
	_ context.Context,
	_ []float32,
	_ int,
) ([]domain.ScoredRecord, error) {
	return m.results, m.err
}

func (m *mockKnowledgeService) Query(
	_ context.Context,
	text string,
	topN int,
) ([]domain.ScoredRecord, error) {
	m.lastQuery = text
	m.lastTopN = topN
	return m.results, m.err
}

func (m *mockKnowledgeService) All(_ context.Context) ([]domain.ChunkRecord, error) {
	return m.records, m.err
}

// mockReplyService is a mock implementation of driving.ReplyService.
type mockReplyService struct {
	reply  string
	answer string
	err    error

	lastEmail domain.Email
}

func (m *mockReplyService) Draft(_ context.Context, email domain.Email) (string, error) {
	m.lastEmail = email
	return m.reply, m.err
}

func (m *mockReplyService) Answer(_ context.Context, _ string) (string, error) {
	return m.answer, m.err
}

// mockReplyState is a mock implementation of driven.ReplyStateStore.
type mockReplyState struct {
	entries []domain.ReplyLogEntry
	emails  []domain.Email
	err     error
}

func (m *mockReplyState) LoadRepliedIDs(_ context.Context) ([]string, error) {
	return nil, m.err
}

func (m *mockReplyState) SaveRepliedIDs(_ context.Context, _ []string) error {
	return m.err
}

func (m *mockReplyState) AppendReplyLog(_ context.Context, _ domain.ReplyLogEntry) error {
	return m.err
}

func (m *mockReplyState) LoadReplyLog(_ context.Context) ([]domain.ReplyLogEntry, error) {
	return m.entries, m.err
}

func (m *mockReplyState) SaveCachedEmails(_ context.Context, _ []domain.Email) error {
	return m.err
}

func (m *mockReplyState) LoadCachedEmails(_ context.Context) ([]domain.Email, error) {
	return m.emails, m.err
}
