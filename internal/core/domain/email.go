package domain

import (
	"net/mail"
	"time"
)

// Email is the canonical representation of a mailbox message inside the core.
// Date is kept as the raw header value; parsing happens at the point of use so
// that messages with malformed dates still flow through the pipeline.
type Email struct {
	// ID is the transport-assigned message identifier.
	ID string

	// From is the sender header value (may include a display name).
	From string

	// To is the primary recipient header value.
	To string

	// Subject is the decoded subject line.
	Subject string

	// Date is the raw Date header value.
	Date string

	// Body is the plain-text body. HTML-only messages are converted
	// to markdown by the transport adapter before reaching the core.
	Body string

	// Snippet is a short transport-provided preview, when available.
	Snippet string

	// LabelIDs are provider-native labels (e.g. "SPAM", "UNREAD").
	LabelIDs []string

	// Attachments are downloaded attachment parts, when fetched in full.
	Attachments []Attachment
}

// ParsedDate parses the raw Date header. The second return value is false
// when the header is missing or unparseable.
func (e Email) ParsedDate() (time.Time, bool) {
	if e.Date == "" {
		return time.Time{}, false
	}
	t, err := mail.ParseDate(e.Date)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// HasLabel reports whether the message carries the given provider label.
func (e Email) HasLabel(label string) bool {
	for _, l := range e.LabelIDs {
		if l == label {
			return true
		}
	}
	return false
}

// Attachment is a single MIME part carried by an email or attached to an
// outgoing reply.
type Attachment struct {
	// Filename is the attachment file name.
	Filename string

	// MIMEType is the content type (e.g. "image/png").
	MIMEType string

	// Data is the decoded content.
	Data []byte

	// ContentID references the part from HTML bodies (cid: URLs).
	// Only set for inline parts.
	ContentID string

	// Inline marks parts rendered inside the body rather than attached.
	Inline bool
}

// IsImage reports whether the attachment is an image usable for
// vision-model description.
func (a Attachment) IsImage() bool {
	switch a.MIMEType {
	case "image/png", "image/jpeg", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

// OutgoingMessage describes a reply to be sent by a mail transport.
// Transport-specific wire encoding is an adapter concern.
type OutgoingMessage struct {
	To          string
	Subject     string
	HTMLBody    string
	InReplyTo   string
	Inline      []Attachment
	Attachments []Attachment
}

// ReplyLogEntry records a sent reply for statistics and audit.
// Entries are append-only; the log is capped at ReplyLogCap.
type ReplyLogEntry struct {
	ID        string    `json:"id"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Date      time.Time `json:"date"`
	Body      string    `json:"body"`
	Signature string    `json:"signature,omitempty"`
}

// ReplyLogCap is the maximum number of retained reply log entries.
// Oldest entries are dropped first.
const ReplyLogCap = 500
