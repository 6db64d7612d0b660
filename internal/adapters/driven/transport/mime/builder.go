// Package mime builds RFC 5322 messages for the mail transports.
package mime

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/custodia-labs/mailpilot/internal/core/domain"
)

// Build renders an outgoing message as a full RFC 5322 byte stream: an HTML
// body plus any attachments. Inline attachments carry a Content-ID so the
// HTML can reference them as cid: URLs.
func Build(from string, msg domain.OutgoingMessage) ([]byte, error) {
	var buf bytes.Buffer

	var h mail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*mail.Address{{Address: from}})
	h.SetAddressList("To", []*mail.Address{{Address: msg.To}})
	h.SetSubject(msg.Subject)
	if msg.InReplyTo != "" {
		h.SetMsgIDList("In-Reply-To", []string{msg.InReplyTo})
		h.SetMsgIDList("References", []string{msg.InReplyTo})
	}

	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create message writer: %w", err)
	}

	var ih mail.InlineHeader
	ih.Set("Content-Type", "text/html; charset=utf-8")
	iw, err := mw.CreateSingleInline(ih)
	if err != nil {
		return nil, fmt.Errorf("create body part: %w", err)
	}
	if _, err := io.WriteString(iw, msg.HTMLBody); err != nil {
		return nil, fmt.Errorf("write body: %w", err)
	}
	if err := iw.Close(); err != nil {
		return nil, fmt.Errorf("close body part: %w", err)
	}

	attachments := append(append([]domain.Attachment{}, msg.Inline...), msg.Attachments...)
	for _, att := range attachments {
		var ah mail.AttachmentHeader
		ah.SetFilename(att.Filename)
		if att.MIMEType != "" {
			ah.Set("Content-Type", att.MIMEType)
		}
		if att.ContentID != "" {
			ah.Set("Content-ID", "<"+att.ContentID+">")
			ah.Set("Content-Disposition", "inline")
		}
		aw, err := mw.CreateAttachment(ah)
		if err != nil {
			return nil, fmt.Errorf("create attachment %s: %w", att.Filename, err)
		}
		if _, err := aw.Write(att.Data); err != nil {
			return nil, fmt.Errorf("write attachment %s: %w", att.Filename, err)
		}
		if err := aw.Close(); err != nil {
			return nil, fmt.Errorf("close attachment %s: %w", att.Filename, err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close message: %w", err)
	}
	return buf.Bytes(), nil
}
