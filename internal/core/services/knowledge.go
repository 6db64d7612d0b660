package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/mailpilot/internal/chunker"
	"github.com/custodia-labs/mailpilot/internal/core/domain"
	"github.com/custodia-labs/mailpilot/internal/core/ports/driven"
	"github.com/custodia-labs/mailpilot/internal/core/ports/driving"
	"github.com/custodia-labs/mailpilot/internal/logger"
)

// Ensure KnowledgeService implements the interface.
var _ driving.KnowledgeService = (*KnowledgeService)(nil)

const (
	// embedBatchSize is the number of chunks per embedding API call.
	embedBatchSize = 100

	// maxQueuedPerCall bounds newly queued chunks per AddDocuments call.
	// Chunks beyond the bound are dropped and logged, never stored.
	maxQueuedPerCall = 2000

	// batchAttempts is how often a whole batch is retried before falling
	// back to per-chunk embedding.
	batchAttempts = 3

	// batchBackoffBase is the initial retry delay, doubled per attempt.
	batchBackoffBase = 500 * time.Millisecond

	// subchunkDivisor re-splits an unembeddable chunk into this many
	// smaller pieces whose vectors are averaged.
	subchunkDivisor = 4
)

// SettingsProvider returns the current assistant settings. Hot reload swaps
// the underlying value; services always read through the provider.
type SettingsProvider func() domain.AssistantSettings

// KnowledgeService maintains the semantic knowledge base: it chunks incoming
// documents, embeds them in batches with a retry/fallback cascade, and
// persists the resulting records.
type KnowledgeService struct {
	chunker  *chunker.Chunker
	embedder driven.EmbeddingService
	store    driven.RecordStore
	audit    driven.AuditLog
	settings SettingsProvider

	// mu serialises read-modify-write of the record set.
	mu sync.Mutex

	// sleep is replaceable in tests to avoid real backoff delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewKnowledgeService creates a knowledge service. The audit log is optional.
func NewKnowledgeService(
	ch *chunker.Chunker,
	embedder driven.EmbeddingService,
	store driven.RecordStore,
	audit driven.AuditLog,
	settings SettingsProvider,
) *KnowledgeService {
	if settings == nil {
		settings = func() domain.AssistantSettings { return domain.DefaultSettings() }
	}
	return &KnowledgeService{
		chunker:  ch,
		embedder: embedder,
		store:    store,
		audit:    audit,
		settings: settings,
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *KnowledgeService) auditEvent(format string, args ...any) {
	if s.audit != nil {
		s.audit.Event(format, args...)
	}
}

// AddDocuments chunks, embeds and stores the given documents. Chunk ids that
// already exist are skipped, so re-ingesting a source is a no-op for its
// existing chunks. When ingestion is disabled the call returns Skipped
// without side effects.
func (s *KnowledgeService) AddDocuments(ctx context.Context, docs []domain.IngestDocument) (domain.IngestResult, error) {
	if !s.settings().IngestEnabled {
		logger.Info("Knowledge ingestion disabled, skipping %d documents", len(docs))
		return domain.IngestResult{Skipped: true}, nil
	}
	if len(docs) == 0 {
		return domain.IngestResult{}, nil
	}
	if s.embedder == nil {
		return domain.IngestResult{}, domain.ErrEmbeddingUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.Load(ctx)
	if err != nil {
		return domain.IngestResult{}, fmt.Errorf("load records: %w", err)
	}
	known := make(map[string]struct{}, len(existing))
	for _, rec := range existing {
		known[rec.ID] = struct{}{}
	}

	pending := s.collectPending(docs, known)
	queued := len(pending)
	if queued == 0 {
		return domain.IngestResult{Queued: 0, Added: 0}, nil
	}

	if queued > maxQueuedPerCall {
		logger.Warn("Queue cap reached: dropping %d of %d chunks", queued-maxQueuedPerCall, queued)
		s.auditEvent("ingest: queue cap reached, dropped %d chunks", queued-maxQueuedPerCall)
		pending = pending[:maxQueuedPerCall]
	}

	s.embedPending(ctx, pending)

	existing = append(existing, pending...)
	if err := s.store.Save(ctx, existing); err != nil {
		return domain.IngestResult{}, fmt.Errorf("save records: %w", err)
	}

	s.auditEvent("ingest: stored %d new chunks from %d documents", len(pending), len(docs))
	return domain.IngestResult{Added: len(pending), Queued: queued}, nil
}

// collectPending derives source ids, chunks each document and builds one
// record per chunk not already known.
func (s *KnowledgeService) collectPending(docs []domain.IngestDocument, known map[string]struct{}) []domain.ChunkRecord {
	var pending []domain.ChunkRecord

	for _, doc := range docs {
		sourceID := SourceID(doc)
		segments := s.chunker.Chunk(doc.Body)
		if len(segments) == 0 {
			continue
		}

		prov := provenanceFor(doc)
		for i, seg := range segments {
			id := fmt.Sprintf("%s-%d", sourceID, i)
			if _, ok := known[id]; ok {
				continue
			}
			known[id] = struct{}{}
			pending = append(pending, domain.ChunkRecord{
				ID:          id,
				SourceID:    sourceID,
				ChunkIndex:  i,
				TotalChunks: len(segments),
				Text:        seg.Text,
				ChunkStart:  seg.Start,
				ChunkEnd:    seg.End,
				Provenance:  prov,
			})
		}
	}

	return pending
}

func provenanceFor(doc domain.IngestDocument) domain.Provenance {
	kind := doc.Kind
	if kind == "" {
		kind = domain.ProvenanceSnippet
	}
	prov := domain.Provenance{
		Kind:    kind,
		Subject: doc.Subject,
		From:    doc.From,
		URI:     doc.URI,
	}
	if doc.Date != "" {
		if t, ok := (domain.Email{Date: doc.Date}).ParsedDate(); ok {
			prov.Date = &t
		}
	}
	return prov
}

// SourceID returns the stable source identifier for a document: the native
// id when present, otherwise a deterministic hash of from|subject|date.
func SourceID(doc domain.IngestDocument) string {
	if doc.ID != "" {
		return doc.ID
	}
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%s", doc.From, doc.Subject, doc.Date)
	return fmt.Sprintf("h%016x", h.Sum64())
}

// embedPending fills in embeddings batch by batch. A chunk whose embedding
// fails permanently keeps a nil vector; its text is never dropped.
func (s *KnowledgeService) embedPending(ctx context.Context, pending []domain.ChunkRecord) {
	for start := 0; start < len(pending); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		texts := make([]string, len(batch))
		for i, rec := range batch {
			texts[i] = rec.Text
		}

		vectors := s.embedCascade(ctx, texts)
		for i := range batch {
			batch[i].Embedding = vectors[i]
		}
	}
}

// embedCascade is the attempt pipeline: tryBatch, then tryPerItem, then
// trySubchunkAverage. The result always has one entry per input text; a nil
// entry marks a permanent failure.
func (s *KnowledgeService) embedCascade(ctx context.Context, texts []string) [][]float32 {
	if vectors, err := s.tryBatch(ctx, texts); err == nil {
		s.auditEvent("embed: batch of %d ok", len(texts))
		return vectors
	}

	logger.Warn("Batch embedding exhausted retries, falling back to per-chunk")
	s.auditEvent("embed: batch of %d failed, per-chunk fallback", len(texts))

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := s.embedder.Embed(ctx, text)
		if err == nil {
			vectors[i] = vec
			continue
		}

		logger.Warn("Per-chunk embedding failed, averaging sub-chunks: %v", err)
		vec, err = s.trySubchunkAverage(ctx, text)
		if err != nil {
			logger.Warn("Sub-chunk averaging failed, retaining chunk without embedding: %v", err)
			s.auditEvent("embed: chunk %d failed permanently: %v", i, err)
			continue
		}
		s.auditEvent("embed: chunk %d recovered via sub-chunk average", i)
		vectors[i] = vec
	}
	return vectors
}

// tryBatch retries the whole batch with exponential backoff.
func (s *KnowledgeService) tryBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt < batchAttempts; attempt++ {
		if attempt > 0 {
			delay := batchBackoffBase << (attempt - 1)
			if err := s.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err == nil && len(vectors) == len(texts) {
			return vectors, nil
		}
		if err == nil {
			err = fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(texts))
		}
		lastErr = err
		logger.Debug("Embed batch attempt %d/%d failed: %v", attempt+1, batchAttempts, err)
	}
	return nil, lastErr
}

// trySubchunkAverage re-splits an unembeddable chunk into smaller pieces,
// embeds each and averages the vectors component-wise into one approximate
// embedding for the original chunk.
func (s *KnowledgeService) trySubchunkAverage(ctx context.Context, text string) ([]float32, error) {
	size := len(text) / subchunkDivisor
	if size < 1 {
		size = 1
	}
	sub := chunker.New(chunker.WithMaxChars(size), chunker.WithOverlap(0))
	segments := sub.Chunk(text)
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: no sub-chunks produced", domain.ErrEmbeddingFailed)
	}

	vectors := make([][]float32, 0, len(segments))
	for _, seg := range segments {
		vec, err := s.embedder.Embed(ctx, seg.Text)
		if err != nil {
			return nil, fmt.Errorf("%w: sub-chunk embed: %v", domain.ErrEmbeddingFailed, err)
		}
		vectors = append(vectors, vec)
	}

	return averageVectors(vectors), nil
}

// averageVectors computes the component-wise mean. Vectors shorter than the
// first are padded with zeros implicitly by bounds checking.
func averageVectors(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	dims := len(vectors[0])
	sum := make([]float64, dims)
	for _, vec := range vectors {
		for i := 0; i < dims && i < len(vec); i++ {
			sum[i] += float64(vec[i])
		}
	}
	avg := make([]float32, dims)
	for i := range sum {
		avg[i] = float32(sum[i] / float64(len(vectors)))
	}
	return avg
}

// QueryByEmbedding ranks stored records against a query vector.
func (s *KnowledgeService) QueryByEmbedding(ctx context.Context, query []float32, topN int) ([]domain.ScoredRecord, error) {
	records, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	return Rank(query, records, topN), nil
}

// Query embeds the text and ranks stored records against it.
func (s *KnowledgeService) Query(ctx context.Context, text string, topN int) ([]domain.ScoredRecord, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrInvalidInput
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return s.QueryByEmbedding(ctx, vec, topN)
}

// All returns every stored record.
func (s *KnowledgeService) All(ctx context.Context) ([]domain.ChunkRecord, error) {
	return s.store.Load(ctx)
}
