package services

import (
	"context"
	"fmt"
	"html"
	"net/mail"
	"strings"
	"time"

	"github.com/custodia-labs/mailpilot/internal/core/domain"
	"github.com/custodia-labs/mailpilot/internal/core/ports/driven"
	"github.com/custodia-labs/mailpilot/internal/logger"
)

// Dispatcher runs the send/confirm cycle: send the reply, append the send
// audit entry, then mark the source message read. A reply only counts as
// committed when both send and mark-read succeed; the reply log records
// every successful send regardless of the later mark-read outcome.
type Dispatcher struct {
	transport driven.MailTransport
	state     driven.ReplyStateStore
	audit     driven.AuditLog
	settings  SettingsProvider

	now func() time.Time
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(
	transport driven.MailTransport,
	state driven.ReplyStateStore,
	audit driven.AuditLog,
	settings SettingsProvider,
) *Dispatcher {
	if settings == nil {
		settings = func() domain.AssistantSettings { return domain.DefaultSettings() }
	}
	return &Dispatcher{
		transport: transport,
		state:     state,
		audit:     audit,
		settings:  settings,
		now:       time.Now,
	}
}

// Dispatch sends replyBody as an answer to original. It returns nil only
// when the send AND the subsequent mark-read succeeded; a mark-read failure
// leaves the message eligible for a future cycle (at-least-once semantics).
func (d *Dispatcher) Dispatch(ctx context.Context, original domain.Email, replyBody string) error {
	settings := d.settings()

	to := senderAddress(original.From)
	if to == "" {
		return fmt.Errorf("%w: no sender address on %s", domain.ErrInvalidInput, original.ID)
	}

	msg := domain.OutgoingMessage{
		To:        to,
		Subject:   replySubject(original.Subject),
		HTMLBody:  renderHTMLBody(replyBody),
		InReplyTo: original.ID,
	}

	if err := d.transport.Send(ctx, msg); err != nil {
		if d.audit != nil {
			d.audit.Event("send failed for %s: %v", original.ID, err)
		}
		return fmt.Errorf("send reply: %w", err)
	}

	// Send audit, not completion audit: appended even if mark-read fails.
	entry := domain.ReplyLogEntry{
		ID:        original.ID,
		To:        to,
		Subject:   msg.Subject,
		Date:      d.now(),
		Body:      replyBody,
		Signature: settings.Signature,
	}
	if err := d.state.AppendReplyLog(ctx, entry); err != nil {
		logger.Warn("Reply log append failed for %s: %v", original.ID, err)
	}
	if d.audit != nil {
		d.audit.Event("sent reply to %s for message %s", to, original.ID)
	}

	if err := d.transport.MarkRead(ctx, original.ID); err != nil {
		if d.audit != nil {
			d.audit.Event("mark-read failed for %s: %v", original.ID, err)
		}
		return fmt.Errorf("mark read: %w", err)
	}

	return nil
}

// senderAddress extracts the bare address from a From header value.
func senderAddress(from string) string {
	addr, err := mail.ParseAddress(from)
	if err != nil {
		return strings.TrimSpace(from)
	}
	return addr.Address
}

// replySubject prefixes "Re: " unless already present.
func replySubject(subject string) string {
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}

// renderHTMLBody converts a plain-text reply into a minimal HTML body.
func renderHTMLBody(body string) string {
	escaped := html.EscapeString(body)
	return "<div>" + strings.ReplaceAll(escaped, "\n", "<br>\n") + "</div>"
}
