package imap

import (
	"fmt"
	"io"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	_ "github.com/emersion/go-message/charset" // decode non-UTF-8 messages
	"github.com/emersion/go-message/mail"

	"github.com/custodia-labs/mailpilot/internal/core/domain"
	"github.com/custodia-labs/mailpilot/internal/logger"
)

// collectMessage drains one fetched message into a domain email. The body
// literal must be consumed inline; go-imap v2 blocks the parser until the
// literal is read.
func collectMessage(msg *imapclient.FetchMessageData) (domain.Email, error) {
	var (
		envelope *imap.Envelope
		uid      imap.UID
		email    domain.Email
	)

	for {
		item := msg.Next()
		if item == nil {
			break
		}
		switch i := item.(type) {
		case imapclient.FetchItemDataEnvelope:
			envelope = i.Envelope
		case imapclient.FetchItemDataUID:
			uid = i.UID
		case imapclient.FetchItemDataFlags:
			for _, flag := range i.Flags {
				email.LabelIDs = append(email.LabelIDs, strings.ToUpper(strings.TrimPrefix(string(flag), "\\")))
			}
		case imapclient.FetchItemDataBodySection:
			if i.Literal == nil {
				continue
			}
			if err := parseBody(i.Literal, &email); err != nil {
				logger.Debug("Body parse failed: %v", err)
			}
		}
	}

	if uid == 0 {
		return email, fmt.Errorf("message without UID")
	}
	email.ID = fmt.Sprintf("%d", uid)

	if envelope != nil {
		email.Subject = envelope.Subject
		email.From = formatAddressList(envelope.From)
		email.To = formatAddressList(envelope.To)
		if !envelope.Date.IsZero() {
			email.Date = envelope.Date.Format(time.RFC1123Z)
		}
	}
	return email, nil
}

// parseBody walks the MIME structure, preferring a plain text body and
// converting HTML to markdown when that is all the message carries.
func parseBody(r io.Reader, email *domain.Email) error {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return fmt.Errorf("create mail reader: %w", err)
	}

	var plain, html strings.Builder

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("next part: %w", err)
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			ct, _, _ := h.ContentType()
			switch {
			case ct == "text/plain":
				data, _ := io.ReadAll(part.Body)
				plain.Write(data)
			case ct == "text/html":
				data, _ := io.ReadAll(part.Body)
				html.Write(data)
			case strings.HasPrefix(ct, "image/"):
				data, _ := io.ReadAll(part.Body)
				email.Attachments = append(email.Attachments, domain.Attachment{
					MIMEType:  ct,
					Data:      data,
					ContentID: strings.Trim(h.Get("Content-Id"), "<>"),
					Inline:    true,
				})
			}
		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			ct, _, _ := h.ContentType()
			data, _ := io.ReadAll(part.Body)
			email.Attachments = append(email.Attachments, domain.Attachment{
				Filename:  filename,
				MIMEType:  ct,
				Data:      data,
				ContentID: strings.Trim(h.Get("Content-Id"), "<>"),
			})
		}
	}

	email.Body = strings.TrimSpace(plain.String())
	if email.Body == "" && html.Len() > 0 {
		md, err := htmltomarkdown.ConvertString(html.String())
		if err != nil {
			md = html.String()
		}
		email.Body = strings.TrimSpace(md)
	}
	return nil
}

func formatAddressList(addrs []imap.Address) string {
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		addr := a.Addr()
		if addr == "" {
			continue
		}
		if a.Name != "" {
			parts = append(parts, fmt.Sprintf("%s <%s>", a.Name, addr))
		} else {
			parts = append(parts, addr)
		}
	}
	return strings.Join(parts, ", ")
}
