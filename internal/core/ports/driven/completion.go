package driven

import "context"

// CompletionService produces model completions for reply generation.
type CompletionService interface {
	// Complete runs a single completion with a system and user prompt.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// DescribeImage returns a textual description of a base64-encoded image.
	DescribeImage(ctx context.Context, base64Data, mimeType string) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
