package domain

import "time"

// ProvenanceKind tags the origin of a knowledge base record.
type ProvenanceKind string

// Known provenance kinds.
const (
	// ProvenanceEmail marks records chunked from a mailbox message.
	ProvenanceEmail ProvenanceKind = "email"

	// ProvenanceFile marks records chunked from an imported document
	// or extracted attachment.
	ProvenanceFile ProvenanceKind = "file"

	// ProvenanceSnippet marks free-form records (e.g. pasted notes,
	// spreadsheet cell dumps).
	ProvenanceSnippet ProvenanceKind = "snippet"
)

// Provenance is the common envelope describing where a chunk came from.
// Kind selects which of the optional fields are meaningful.
type Provenance struct {
	// Kind is the variant tag.
	Kind ProvenanceKind `json:"kind"`

	// Subject and From are set for email provenance.
	Subject string `json:"subject,omitempty"`
	From    string `json:"from,omitempty"`

	// Date is the source timestamp when one could be parsed.
	Date *time.Time `json:"date,omitempty"`

	// URI locates file or snippet sources (path, URL).
	URI string `json:"uri,omitempty"`
}

// ChunkRecord is the unit of retrievable knowledge: one bounded substring of
// a source document together with its embedding and exact offsets.
//
// Records are never mutated in place. Re-ingesting a source skips chunk ids
// that already exist in the store.
type ChunkRecord struct {
	// ID is derived from (SourceID, ChunkIndex) and unique within a store.
	ID string `json:"id"`

	// SourceID identifies the originating document or email.
	SourceID string `json:"sourceId"`

	// ChunkIndex and TotalChunks give the position within the source.
	ChunkIndex  int `json:"chunkIndex"`
	TotalChunks int `json:"totalChunks"`

	// Text is the literal substring of the source. No lossy normalisation.
	Text string `json:"text"`

	// ChunkStart and ChunkEnd are character offsets into the original text,
	// so Text == original[ChunkStart:ChunkEnd].
	ChunkStart int `json:"chunkStart"`
	ChunkEnd   int `json:"chunkEnd"`

	// Embedding is the vector representation. Nil when embedding failed
	// permanently; such records are excluded from similarity ranking but
	// never deleted.
	Embedding []float32 `json:"embedding,omitempty"`

	// Provenance describes the source.
	Provenance Provenance `json:"provenance"`
}

// HasEmbedding reports whether the record participates in similarity ranking.
func (r ChunkRecord) HasEmbedding() bool {
	return len(r.Embedding) > 0
}

// ScoredRecord pairs a record with its similarity score for ranking results.
type ScoredRecord struct {
	Record ChunkRecord
	Score  float64
}

// IngestDocument is the input shape accepted by the knowledge service.
// ID may be empty; a deterministic source id is then derived from
// From, Subject and Date.
type IngestDocument struct {
	ID      string
	From    string
	Subject string
	Date    string
	Body    string
	URI     string
	Kind    ProvenanceKind
}

// IngestResult summarises one AddDocuments call.
type IngestResult struct {
	// Added is the number of chunks newly embedded and stored.
	Added int

	// Queued is the number of chunks that passed dedup and were
	// submitted for embedding.
	Queued int

	// Skipped is true when ingestion is disabled by configuration.
	Skipped bool
}
