package services

import (
	"context"
	"errors"

	"github.com/custodia-labs/mailpilot/internal/core/domain"
	"github.com/custodia-labs/mailpilot/internal/core/ports/driven"
)

// mockTransport implements driven.MailTransport with canned data and
// per-call hooks.
type mockTransport struct {
	unread []domain.Email
	recent []domain.Email
	byID   map[string]domain.Email

	pingFn      func(ctx context.Context) error
	fetchErr    error
	sendErr     error
	markReadErr error
	recentErr   error

	sent       []domain.OutgoingMessage
	markedRead []string
}

func (m *mockTransport) FetchUnread(_ context.Context) ([]domain.Email, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	out := make([]domain.Email, len(m.unread))
	copy(out, m.unread)
	return out, nil
}

func (m *mockTransport) FetchRecent(_ context.Context, limit int) ([]domain.Email, error) {
	if m.recentErr != nil {
		return nil, m.recentErr
	}
	if len(m.recent) > limit {
		return m.recent[:limit], nil
	}
	return m.recent, nil
}

func (m *mockTransport) FetchByID(_ context.Context, id string) (*domain.Email, error) {
	if email, ok := m.byID[id]; ok {
		return &email, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockTransport) MarkRead(_ context.Context, id string) error {
	if m.markReadErr != nil {
		return m.markReadErr
	}
	m.markedRead = append(m.markedRead, id)
	return nil
}

func (m *mockTransport) Send(_ context.Context, msg domain.OutgoingMessage) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mockTransport) Ping(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}

func (m *mockTransport) Close() error { return nil }

// mockReplyState implements driven.ReplyStateStore in memory.
type mockReplyState struct {
	repliedIDs []string
	replyLog   []domain.ReplyLogEntry
	cached     []domain.Email

	appendErr      error
	saveRepliedErr error

	savedRepliedCalls int
}

func (m *mockReplyState) LoadRepliedIDs(_ context.Context) ([]string, error) {
	out := make([]string, len(m.repliedIDs))
	copy(out, m.repliedIDs)
	return out, nil
}

func (m *mockReplyState) SaveRepliedIDs(_ context.Context, ids []string) error {
	if m.saveRepliedErr != nil {
		return m.saveRepliedErr
	}
	m.savedRepliedCalls++
	m.repliedIDs = make([]string, len(ids))
	copy(m.repliedIDs, ids)
	return nil
}

func (m *mockReplyState) AppendReplyLog(_ context.Context, entry domain.ReplyLogEntry) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.replyLog = append(m.replyLog, entry)
	if len(m.replyLog) > domain.ReplyLogCap {
		m.replyLog = m.replyLog[len(m.replyLog)-domain.ReplyLogCap:]
	}
	return nil
}

func (m *mockReplyState) LoadReplyLog(_ context.Context) ([]domain.ReplyLogEntry, error) {
	return m.replyLog, nil
}

func (m *mockReplyState) SaveCachedEmails(_ context.Context, emails []domain.Email) error {
	m.cached = make([]domain.Email, len(emails))
	copy(m.cached, emails)
	return nil
}

func (m *mockReplyState) LoadCachedEmails(_ context.Context) ([]domain.Email, error) {
	out := make([]domain.Email, len(m.cached))
	copy(out, m.cached)
	return out, nil
}

// mockCompletion implements driven.CompletionService and records prompts.
type mockCompletion struct {
	completeFn func(systemPrompt, userPrompt string) (string, error)
	describeFn func(base64Data, mimeType string) (string, error)

	systemPrompts []string
	userPrompts   []string
}

func (m *mockCompletion) Complete(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	m.systemPrompts = append(m.systemPrompts, systemPrompt)
	m.userPrompts = append(m.userPrompts, userPrompt)
	if m.completeFn != nil {
		return m.completeFn(systemPrompt, userPrompt)
	}
	return "drafted reply", nil
}

func (m *mockCompletion) DescribeImage(_ context.Context, base64Data, mimeType string) (string, error) {
	if m.describeFn != nil {
		return m.describeFn(base64Data, mimeType)
	}
	return "an image", nil
}

func (m *mockCompletion) ModelName() string            { return "mock-completion" }
func (m *mockCompletion) Ping(_ context.Context) error { return nil }
func (m *mockCompletion) Close() error                 { return nil }

// mockKnowledge implements driving.KnowledgeService with canned results.
type mockKnowledge struct {
	results []domain.ScoredRecord
	addErr  error
	added   [][]domain.IngestDocument
}

func (m *mockKnowledge) AddDocuments(_ context.Context, docs []domain.IngestDocument) (domain.IngestResult, error) {
	if m.addErr != nil {
		return domain.IngestResult{}, m.addErr
	}
	m.added = append(m.added, docs)
	return domain.IngestResult{Added: len(docs)}, nil
}

func (m *mockKnowledge) QueryByEmbedding(_ context.Context, _ []float32, topN int) ([]domain.ScoredRecord, error) {
	if len(m.results) > topN {
		return m.results[:topN], nil
	}
	return m.results, nil
}

func (m *mockKnowledge) Query(_ context.Context, _ string, topN int) ([]domain.ScoredRecord, error) {
	if len(m.results) > topN {
		return m.results[:topN], nil
	}
	return m.results, nil
}

func (m *mockKnowledge) All(_ context.Context) ([]domain.ChunkRecord, error) {
	return nil, nil
}

// mockReplier implements driving.ReplyService.
type mockReplier struct {
	draftFn func(email domain.Email) (string, error)
	drafts  int
}

func (m *mockReplier) Draft(_ context.Context, email domain.Email) (string, error) {
	m.drafts++
	if m.draftFn != nil {
		return m.draftFn(email)
	}
	return "drafted reply", nil
}

func (m *mockReplier) Answer(_ context.Context, _ string) (string, error) {
	return "", errors.New("not implemented")
}

// mockCycleStore implements driven.CycleStore in memory.
type mockCycleStore struct {
	results []driven.CycleResult
}

func (m *mockCycleStore) Record(_ context.Context, result driven.CycleResult) error {
	m.results = append(m.results, result)
	return nil
}

func (m *mockCycleStore) List(_ context.Context, limit int) ([]driven.CycleResult, error) {
	if len(m.results) > limit {
		return m.results[len(m.results)-limit:], nil
	}
	return m.results, nil
}

func (m *mockCycleStore) Prune(_ context.Context, keep int) error {
	if len(m.results) > keep {
		m.results = m.results[len(m.results)-keep:]
	}
	return nil
}

func (m *mockCycleStore) Close() error { return nil }
