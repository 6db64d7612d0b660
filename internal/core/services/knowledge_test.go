package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mailpilot/internal/chunker"
	"github.com/custodia-labs/mailpilot/internal/core/domain"
)

// --- Mock implementations ---

// mockRecordStore implements driven.RecordStore in memory.
type mockRecordStore struct {
	records []domain.ChunkRecord
	loadErr error
	saveErr error
	saves   int
}

func (m *mockRecordStore) Load(_ context.Context) ([]domain.ChunkRecord, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := make([]domain.ChunkRecord, len(m.records))
	copy(out, m.records)
	return out, nil
}

func (m *mockRecordStore) Save(_ context.Context, records []domain.ChunkRecord) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.records = make([]domain.ChunkRecord, len(records))
	copy(m.records, records)
	return nil
}

// mockEmbedder implements driven.EmbeddingService with per-call hooks.
type mockEmbedder struct {
	embedFn      func(text string) ([]float32, error)
	embedBatchFn func(texts []string) ([][]float32, error)
	batchCalls   int
	singleCalls  int
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.singleCalls++
	if m.embedFn != nil {
		return m.embedFn(text)
	}
	return []float32{1, 0}, nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.batchCalls++
	if m.embedBatchFn != nil {
		return m.embedBatchFn(texts)
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int              { return 2 }
func (m *mockEmbedder) ModelName() string            { return "mock-embed" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

// mockAudit implements driven.AuditLog and records events.
type mockAudit struct {
	events []string
}

func (m *mockAudit) Event(format string, args ...any) {
	m.events = append(m.events, format)
}

func newTestKnowledge(store *mockRecordStore, embedder *mockEmbedder) *KnowledgeService {
	s := NewKnowledgeService(
		chunker.New(chunker.WithMaxChars(100), chunker.WithOverlap(10)),
		embedder,
		store,
		&mockAudit{},
		nil,
	)
	s.sleep = func(_ context.Context, _ time.Duration) error { return nil }
	return s
}

// --- Tests ---

func TestSourceID(t *testing.T) {
	t.Run("native id preferred", func(t *testing.T) {
		doc := domain.IngestDocument{ID: "msg-1", From: "a", Subject: "b"}
		assert.Equal(t, "msg-1", SourceID(doc))
	})

	t.Run("deterministic hash without native id", func(t *testing.T) {
		a := domain.IngestDocument{From: "alice@x.y", Subject: "Hi", Date: "Mon, 02 Jan 2006 15:04:05 -0700"}
		b := domain.IngestDocument{From: "alice@x.y", Subject: "Hi", Date: "Mon, 02 Jan 2006 15:04:05 -0700"}
		assert.Equal(t, SourceID(a), SourceID(b))
		assert.True(t, strings.HasPrefix(SourceID(a), "h"))
	})

	t.Run("different headers differ", func(t *testing.T) {
		a := domain.IngestDocument{From: "alice@x.y", Subject: "Hi"}
		b := domain.IngestDocument{From: "bob@x.y", Subject: "Hi"}
		assert.NotEqual(t, SourceID(a), SourceID(b))
	})
}

func TestAddDocuments_DedupIdempotence(t *testing.T) {
	store := &mockRecordStore{}
	embedder := &mockEmbedder{}
	s := newTestKnowledge(store, embedder)

	doc := domain.IngestDocument{ID: "doc-1", Body: strings.Repeat("Sentence here. ", 30)}

	first, err := s.AddDocuments(context.Background(), []domain.IngestDocument{doc})
	require.NoError(t, err)
	assert.Positive(t, first.Added)

	second, err := s.AddDocuments(context.Background(), []domain.IngestDocument{doc})
	require.NoError(t, err)
	assert.Zero(t, second.Added)
	assert.Len(t, store.records, first.Added)
}

func TestAddDocuments_KillSwitch(t *testing.T) {
	store := &mockRecordStore{}
	embedder := &mockEmbedder{}
	s := newTestKnowledge(store, embedder)
	s.settings = func() domain.AssistantSettings {
		return domain.AssistantSettings{IngestEnabled: false}
	}

	result, err := s.AddDocuments(context.Background(), []domain.IngestDocument{
		{ID: "doc-1", Body: "Some text."},
	})
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Zero(t, result.Added)
	assert.Zero(t, store.saves)
	assert.Zero(t, embedder.batchCalls)
}

func TestAddDocuments_RecordShape(t *testing.T) {
	store := &mockRecordStore{}
	s := newTestKnowledge(store, &mockEmbedder{})

	body := strings.Repeat("A sentence of filler text goes right here. ", 10)
	_, err := s.AddDocuments(context.Background(), []domain.IngestDocument{
		{ID: "doc-1", From: "alice@x.y", Subject: "Notes", Body: body, Kind: domain.ProvenanceEmail},
	})
	require.NoError(t, err)
	require.NotEmpty(t, store.records)

	for i, rec := range store.records {
		assert.Equal(t, "doc-1", rec.SourceID)
		assert.Equal(t, i, rec.ChunkIndex)
		assert.Equal(t, len(store.records), rec.TotalChunks)
		assert.Equal(t, body[rec.ChunkStart:rec.ChunkEnd], rec.Text)
		assert.Equal(t, domain.ProvenanceEmail, rec.Provenance.Kind)
		assert.True(t, rec.HasEmbedding())
	}
}

func TestAddDocuments_BatchFallbackToPerChunk(t *testing.T) {
	store := &mockRecordStore{}
	embedder := &mockEmbedder{
		embedBatchFn: func(_ []string) ([][]float32, error) {
			return nil, errors.New("rate limited")
		},
	}
	s := newTestKnowledge(store, embedder)

	_, err := s.AddDocuments(context.Background(), []domain.IngestDocument{
		{ID: "doc-1", Body: strings.Repeat("Text. ", 60)},
	})
	require.NoError(t, err)

	assert.Equal(t, batchAttempts, embedder.batchCalls)
	assert.Positive(t, embedder.singleCalls)
	for _, rec := range store.records {
		assert.True(t, rec.HasEmbedding())
	}
}

func TestAddDocuments_SubchunkAverage(t *testing.T) {
	store := &mockRecordStore{}
	// Batch fails; per-chunk fails for full chunks but succeeds for the
	// smaller sub-chunks, exercising the averaging tier.
	embedder := &mockEmbedder{
		embedBatchFn: func(_ []string) ([][]float32, error) {
			return nil, errors.New("boom")
		},
	}
	embedder.embedFn = func(text string) ([]float32, error) {
		if len(text) > 30 {
			return nil, errors.New("input too large")
		}
		return []float32{2, 4}, nil
	}
	s := newTestKnowledge(store, embedder)

	_, err := s.AddDocuments(context.Background(), []domain.IngestDocument{
		{ID: "doc-1", Body: strings.Repeat("Words here. ", 8)},
	})
	require.NoError(t, err)
	require.NotEmpty(t, store.records)

	for _, rec := range store.records {
		require.True(t, rec.HasEmbedding(), "averaged embedding expected")
		assert.InDelta(t, 2.0, rec.Embedding[0], 1e-6)
		assert.InDelta(t, 4.0, rec.Embedding[1], 1e-6)
	}
}

func TestAddDocuments_PermanentFailureKeepsText(t *testing.T) {
	store := &mockRecordStore{}
	embedder := &mockEmbedder{
		embedBatchFn: func(_ []string) ([][]float32, error) { return nil, errors.New("down") },
		embedFn:      func(_ string) ([]float32, error) { return nil, errors.New("down") },
	}
	s := newTestKnowledge(store, embedder)

	body := "Short body that still must be retained."
	_, err := s.AddDocuments(context.Background(), []domain.IngestDocument{
		{ID: "doc-1", Body: body},
	})
	require.NoError(t, err)
	require.Len(t, store.records, 1)
	assert.Equal(t, body, store.records[0].Text)
	assert.False(t, store.records[0].HasEmbedding())
}

func TestQueryByEmbedding(t *testing.T) {
	t.Run("empty store returns empty", func(t *testing.T) {
		s := newTestKnowledge(&mockRecordStore{}, &mockEmbedder{})
		got, err := s.QueryByEmbedding(context.Background(), []float32{1, 0}, 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("three records topN ten returns all sorted", func(t *testing.T) {
		store := &mockRecordStore{records: []domain.ChunkRecord{
			{ID: "far", Embedding: []float32{0, 1}},
			{ID: "near", Embedding: []float32{1, 0}},
			{ID: "mid", Embedding: []float32{1, 1}},
		}}
		s := newTestKnowledge(store, &mockEmbedder{})

		got, err := s.QueryByEmbedding(context.Background(), []float32{1, 0}, 10)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "near", got[0].Record.ID)
		assert.Equal(t, "mid", got[1].Record.ID)
		assert.Equal(t, "far", got[2].Record.ID)
	})
}

func TestQuery_EmptyText(t *testing.T) {
	s := newTestKnowledge(&mockRecordStore{}, &mockEmbedder{})
	_, err := s.Query(context.Background(), "   ", 5)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
