package driven

import (
	"context"

	"github.com/custodia-labs/mailpilot/internal/core/domain"
)

// MailTransport abstracts the mailbox provider (Gmail API, IMAP/SMTP).
// The core never sees transport-specific encoding; adapters translate
// domain.Email and domain.OutgoingMessage to the wire.
type MailTransport interface {
	// FetchUnread returns unread messages, oldest first.
	FetchUnread(ctx context.Context) ([]domain.Email, error)

	// FetchRecent returns up to limit most-recent messages regardless of
	// read state, newest first.
	FetchRecent(ctx context.Context, limit int) ([]domain.Email, error)

	// FetchByID returns the full message including body and attachments.
	FetchByID(ctx context.Context, id string) (*domain.Email, error)

	// MarkRead clears the unread state of a message.
	MarkRead(ctx context.Context, id string) error

	// Send dispatches an outgoing message.
	Send(ctx context.Context, msg domain.OutgoingMessage) error

	// Ping verifies connectivity with a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
