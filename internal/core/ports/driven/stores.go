package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/mailpilot/internal/core/domain"
)

// RecordStore persists the knowledge base chunk records. The expected KB
// size keeps a whole-set rewrite per save acceptable; implementations must
// make Save atomic enough that a crash never leaves a truncated file.
type RecordStore interface {
	// Load returns all stored records in insertion order.
	Load(ctx context.Context) ([]domain.ChunkRecord, error)

	// Save rewrites the full record set.
	Save(ctx context.Context, records []domain.ChunkRecord) error
}

// ReplyStateStore persists the reply bookkeeping files: replied ids, the
// capped reply log and the cached filtered email set. In-progress ids are
// deliberately NOT persisted; they never survive a restart.
type ReplyStateStore interface {
	// LoadRepliedIDs returns the set of already-answered message ids.
	LoadRepliedIDs(ctx context.Context) ([]string, error)

	// SaveRepliedIDs rewrites the replied id log.
	SaveRepliedIDs(ctx context.Context, ids []string) error

	// AppendReplyLog appends an entry, dropping the oldest beyond the cap.
	AppendReplyLog(ctx context.Context, entry domain.ReplyLogEntry) error

	// LoadReplyLog returns the retained reply log entries, oldest first.
	LoadReplyLog(ctx context.Context) ([]domain.ReplyLogEntry, error)

	// SaveCachedEmails mirrors the latest filtered fetch for consumers
	// that read emails without hitting the transport.
	SaveCachedEmails(ctx context.Context, emails []domain.Email) error

	// LoadCachedEmails returns the last mirrored filtered set.
	LoadCachedEmails(ctx context.Context) ([]domain.Email, error)
}

// AuditLog appends timestamped lines to an append-only log file.
type AuditLog interface {
	Event(format string, args ...any)
}

// CycleResult summarises one completed poll cycle for history.
type CycleResult struct {
	ID        string
	StartedAt time.Time
	EndedAt   time.Time
	Fetched   int
	Filtered  int
	Replied   int
	Offline   bool
	Error     string
}

// CycleStore persists poll cycle history.
type CycleStore interface {
	// Record stores a completed cycle result.
	Record(ctx context.Context, result CycleResult) error

	// List returns the most recent results, newest first.
	List(ctx context.Context, limit int) ([]CycleResult, error)

	// Prune drops all but the newest keep results.
	Prune(ctx context.Context, keep int) error

	// Close releases resources.
	Close() error
}
