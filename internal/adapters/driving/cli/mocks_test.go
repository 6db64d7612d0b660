package cli

import (
	"context"

	"github.com/custodia-labs/mailpilot/internal/core/domain"
	"github.com/custodia-labs/mailpilot/internal/core/ports/driven"
	"github.com/custodia-labs/mailpilot/internal/core/ports/driving"
)

// mockKnowledge is a mock implementation of driving.KnowledgeService.
type mockKnowledge struct {
	result  domain.IngestResult
	results []domain.ScoredRecord
	err     error

	addedDocs []domain.IngestDocument
}

func (m *mockKnowledge) AddDocuments(
	_ context.Context,
	docs []domain.IngestDocument,
) (domain.IngestResult, error) {
	m.addedDocs = append(m.addedDocs, docs...)
	return m.result, m.err
}

func (m *mockKnowledge) QueryByEmbedding(
	_ context.Context,
	_ []float32,
	_ int,
) ([]domain.ScoredRecord, error) {
	return m.results, m.err
}

func (m *mockKnowledge) Query(_ context.Context, _ string, _ int) ([]domain.ScoredRecord, error) {
	return m.results, m.err
}

func (m *mockKnowledge) All(_ context.Context) ([]domain.ChunkRecord, error) {
	return nil, m.err
}

// mockReply is a mock implementation of driving.ReplyService.
type mockReply struct {
	reply  string
	answer string
	err    error

	lastQuestion string
}

func (m *mockReply) Draft(_ context.Context, _ domain.Email) (string, error) {
	return m.reply, m.err
}

func (m *mockReply) Answer(_ context.Context, question string) (string, error) {
	m.lastQuestion = question
	return m.answer, m.err
}

// mockReplyState is a mock implementation of driven.ReplyStateStore.
type mockReplyState struct {
	entries []domain.ReplyLogEntry
	emails  []domain.Email
	err     error
}

func (m *mockReplyState) LoadRepliedIDs(_ context.Context) ([]string, error) { return nil, m.err }
func (m *mockReplyState) SaveRepliedIDs(_ context.Context, _ []string) error { return m.err }
func (m *mockReplyState) AppendReplyLog(_ context.Context, _ domain.ReplyLogEntry) error {
	return m.err
}
func (m *mockReplyState) LoadReplyLog(_ context.Context) ([]domain.ReplyLogEntry, error) {
	return m.entries, m.err
}
func (m *mockReplyState) SaveCachedEmails(_ context.Context, _ []domain.Email) error { return m.err }
func (m *mockReplyState) LoadCachedEmails(_ context.Context) ([]domain.Email, error) {
	return m.emails, m.err
}

// mockCycles is a mock implementation of driven.CycleStore.
type mockCycles struct {
	cycles []driven.CycleResult
	err    error
}

func (m *mockCycles) Record(_ context.Context, _ driven.CycleResult) error { return m.err }
func (m *mockCycles) List(_ context.Context, _ int) ([]driven.CycleResult, error) {
	return m.cycles, m.err
}
func (m *mockCycles) Prune(_ context.Context, _ int) error { return m.err }
func (m *mockCycles) Close() error                         { return nil }

// mockPoller is a mock implementation of driving.Poller.
type mockPoller struct {
	err error

	checkNowCalls int
}

func (m *mockPoller) Run(ctx context.Context) error {
	<-ctx.Done()
	return m.err
}
func (m *mockPoller) Stop() error { return m.err }
func (m *mockPoller) CheckNow()   { m.checkNowCalls++ }
func (m *mockPoller) Subscribe() <-chan driving.PollerEvent {
	return make(chan driving.PollerEvent)
}

// setupTestServices wires mocks into the package-level services and returns
// a cleanup that restores the previous wiring.
func setupTestServices() func() {
	oldKnowledge := knowledgeService
	oldReply := replyService
	oldPoller := poller
	oldConfig := configStore
	oldReplyState := replyStateStore
	oldCycles := cycleStore
	oldExtractor := textExtractor

	knowledgeService = &mockKnowledge{}
	replyService = &mockReply{answer: "grounded answer"}
	poller = &mockPoller{}
	replyStateStore = &mockReplyState{}
	cycleStore = &mockCycles{}

	return func() {
		knowledgeService = oldKnowledge
		replyService = oldReply
		poller = oldPoller
		configStore = oldConfig
		replyStateStore = oldReplyState
		cycleStore = oldCycles
		textExtractor = oldExtractor
	}
}
