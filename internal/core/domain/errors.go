package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCycleInProgress indicates a poll cycle is already running.
	// A second trigger during an active cycle is a silent no-op; callers
	// that need to distinguish can test for this sentinel.
	ErrCycleInProgress = errors.New("poll cycle in progress")

	// ErrTransportUnavailable indicates the mailbox cannot be reached.
	// The poller treats this as "skip this cycle", not fatal.
	ErrTransportUnavailable = errors.New("mail transport unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Retrieval-augmented features are disabled without it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrCompletionUnavailable indicates the completion service is not
	// configured. Reply generation is disabled without it.
	ErrCompletionUnavailable = errors.New("completion service unavailable")

	// ErrIngestDisabled indicates the knowledge base kill switch is on.
	ErrIngestDisabled = errors.New("knowledge ingestion disabled")

	// ErrEmbeddingFailed indicates a chunk could not be embedded after the
	// full fallback cascade. The chunk text is retained without a vector.
	ErrEmbeddingFailed = errors.New("embedding failed permanently")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)
