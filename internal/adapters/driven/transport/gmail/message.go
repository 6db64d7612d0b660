package gmail

import (
	"encoding/base64"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"google.golang.org/api/gmail/v1"

	"github.com/custodia-labs/mailpilot/internal/core/domain"
	"github.com/custodia-labs/mailpilot/internal/logger"
)

// attachmentRef is an attachment discovered while walking the payload whose
// data still has to be fetched via the attachments endpoint.
type attachmentRef struct {
	attachmentID string
	filename     string
	mimeType     string
	contentID    string
	inline       bool
}

// messageToEmail converts a Gmail message (format "full") to a domain email.
// Attachment data is not populated here; the caller fetches it per ref.
func messageToEmail(msg *gmail.Message) (domain.Email, []attachmentRef) {
	email := domain.Email{
		ID:       msg.Id,
		Snippet:  msg.Snippet,
		LabelIDs: msg.LabelIds,
	}

	if msg.Payload == nil {
		return email, nil
	}

	for _, h := range msg.Payload.Headers {
		switch strings.ToLower(h.Name) {
		case "from":
			email.From = h.Value
		case "to":
			email.To = h.Value
		case "subject":
			email.Subject = h.Value
		case "date":
			email.Date = h.Value
		}
	}

	var plain, html strings.Builder
	var refs []attachmentRef
	collectParts(msg.Payload, &plain, &html, &refs)

	email.Body = strings.TrimSpace(plain.String())
	if email.Body == "" && html.Len() > 0 {
		md, err := htmltomarkdown.ConvertString(html.String())
		if err != nil {
			logger.Debug("HTML body conversion failed for %s: %v", msg.Id, err)
			md = html.String()
		}
		email.Body = strings.TrimSpace(md)
	}

	return email, refs
}

// collectParts walks the MIME tree accumulating text bodies and attachment
// references.
func collectParts(part *gmail.MessagePart, plain, html *strings.Builder, refs *[]attachmentRef) {
	if part == nil {
		return
	}

	if part.Filename != "" && part.Body != nil && part.Body.AttachmentId != "" {
		contentID := headerValue(part.Headers, "Content-Id")
		contentID = strings.Trim(contentID, "<>")
		disposition := headerValue(part.Headers, "Content-Disposition")
		*refs = append(*refs, attachmentRef{
			attachmentID: part.Body.AttachmentId,
			filename:     part.Filename,
			mimeType:     part.MimeType,
			contentID:    contentID,
			inline:       strings.HasPrefix(strings.ToLower(disposition), "inline"),
		})
		return
	}

	if part.Body != nil && part.Body.Data != "" {
		decoded, err := base64.URLEncoding.DecodeString(part.Body.Data)
		if err == nil {
			switch part.MimeType {
			case "text/plain":
				plain.Write(decoded)
			case "text/html":
				html.Write(decoded)
			}
		}
	}

	for _, child := range part.Parts {
		collectParts(child, plain, html, refs)
	}
}

func headerValue(headers []*gmail.MessagePartHeader, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}
