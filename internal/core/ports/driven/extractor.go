package driven

import "context"

// TextExtractor converts a file's bytes into plain text for ingestion.
type TextExtractor interface {
	// Extract returns the plain text of the given content.
	Extract(data []byte, extension string) (string, error)

	// Supports reports whether the extractor handles the extension.
	Supports(extension string) bool
}

// WebFetcher retrieves a URL and returns its content as markdown/plain text.
type WebFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}
