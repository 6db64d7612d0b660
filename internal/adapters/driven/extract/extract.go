// Package extract converts importable files into plain text for ingestion.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	_ "github.com/emersion/go-message/charset" // decode non-UTF-8 messages
	"github.com/emersion/go-message/mail"

	"github.com/custodia-labs/mailpilot/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// Extractor handles the document formats the knowledge base can import.
type Extractor struct{}

// NewExtractor creates a text extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Supports reports whether the extractor handles the extension.
func (e *Extractor) Supports(extension string) bool {
	switch normalizeExt(extension) {
	case ".txt", ".md", ".markdown", ".html", ".htm", ".eml", ".csv", ".log":
		return true
	default:
		return false
	}
}

// Extract returns the plain text of the given content.
func (e *Extractor) Extract(data []byte, extension string) (string, error) {
	switch normalizeExt(extension) {
	case ".txt", ".md", ".markdown", ".csv", ".log":
		return string(data), nil
	case ".html", ".htm":
		markdown, err := htmltomarkdown.ConvertString(string(data))
		if err != nil {
			return "", fmt.Errorf("convert html: %w", err)
		}
		return markdown, nil
	case ".eml":
		return extractEML(data)
	default:
		return "", fmt.Errorf("unsupported extension %q", extension)
	}
}

// extractEML pulls the headers and text body out of an RFC 5322 message.
func extractEML(data []byte) (string, error) {
	mr, err := mail.CreateReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("read message: %w", err)
	}

	var sb strings.Builder
	if from, err := mr.Header.Text("From"); err == nil && from != "" {
		fmt.Fprintf(&sb, "From: %s\n", from)
	}
	if subject, err := mr.Header.Subject(); err == nil && subject != "" {
		fmt.Fprintf(&sb, "Subject: %s\n", subject)
	}
	sb.WriteByte('\n')

	var plain, html strings.Builder
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("next part: %w", err)
		}
		if h, ok := part.Header.(*mail.InlineHeader); ok {
			ct, _, _ := h.ContentType()
			switch ct {
			case "text/plain":
				body, _ := io.ReadAll(part.Body)
				plain.Write(body)
			case "text/html":
				body, _ := io.ReadAll(part.Body)
				html.Write(body)
			}
		}
	}

	body := strings.TrimSpace(plain.String())
	if body == "" && html.Len() > 0 {
		if md, err := htmltomarkdown.ConvertString(html.String()); err == nil {
			body = strings.TrimSpace(md)
		}
	}
	sb.WriteString(body)
	return sb.String(), nil
}

func normalizeExt(extension string) string {
	extension = strings.ToLower(strings.TrimSpace(extension))
	if extension != "" && !strings.HasPrefix(extension, ".") {
		extension = "." + extension
	}
	return extension
}
