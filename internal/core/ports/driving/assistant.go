package driving

import (
	"context"

	"github.com/custodia-labs/mailpilot/internal/core/domain"
)

// KnowledgeService manages the semantic knowledge base.
type KnowledgeService interface {
	// AddDocuments chunks, embeds and stores the given documents.
	// Already-stored chunk ids are skipped.
	AddDocuments(ctx context.Context, docs []domain.IngestDocument) (domain.IngestResult, error)

	// QueryByEmbedding ranks stored records against a query vector.
	QueryByEmbedding(ctx context.Context, query []float32, topN int) ([]domain.ScoredRecord, error)

	// Query embeds the text and ranks stored records against it.
	Query(ctx context.Context, text string, topN int) ([]domain.ScoredRecord, error)

	// All returns every stored record.
	All(ctx context.Context) ([]domain.ChunkRecord, error)
}

// ReplyService assembles grounded reply drafts.
type ReplyService interface {
	// Draft produces a reply for the given email, grounded in the
	// knowledge base and recent mailbox context.
	Draft(ctx context.Context, email domain.Email) (string, error)

	// Answer produces a grounded answer to a free-form question,
	// with no mailbox side effects.
	Answer(ctx context.Context, question string) (string, error)
}

// PollerEvent notifies observers of poller activity.
type PollerEvent struct {
	// Kind is one of "online", "offline", "emails", "replied".
	Kind string

	// Emails carries the filtered set for "emails" events.
	Emails []domain.Email

	// MessageID carries the answered id for "replied" events.
	MessageID string
}

// Poller drives the mailbox monitoring state machine.
type Poller interface {
	// Run starts the poll loop and blocks until the context is cancelled
	// or Stop is called. An in-flight cycle is never preempted.
	Run(ctx context.Context) error

	// Stop prevents future ticks and waits for the active cycle.
	Stop() error

	// CheckNow queues an out-of-band poll cycle. A no-op while a cycle
	// is already running.
	CheckNow()

	// Subscribe registers an observer channel for poller events.
	Subscribe() <-chan PollerEvent
}
