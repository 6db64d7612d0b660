// Package chunker splits text into overlapping, boundary-aware segments
// with reconstructible offsets.
package chunker

import "strings"

// DefaultMaxChars is the default number of characters per segment.
const DefaultMaxChars = 8000

// DefaultOverlap is the default number of overlapping characters between
// adjacent segments.
const DefaultOverlap = 800

// maxSegments is a hard safety cap on the number of produced segments,
// guarding against unbounded loops on degenerate input.
const maxSegments = 10000

// boundaryFraction is how far back from the window end the sentence-boundary
// scan may reach, as a fraction of the window size.
const boundaryFraction = 0.6

// Segment is one bounded substring of the input together with its exact
// character offsets, so Text == input[Start:End].
type Segment struct {
	Text  string
	Start int
	End   int
}

// Chunker splits text into segments.
type Chunker struct {
	maxChars int
	overlap  int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithMaxChars sets the segment size in characters.
func WithMaxChars(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.maxChars = n
		}
	}
}

// WithOverlap sets the overlap between segments in characters.
func WithOverlap(n int) Option {
	return func(c *Chunker) {
		if n >= 0 {
			c.overlap = n
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		maxChars: DefaultMaxChars,
		overlap:  DefaultOverlap,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Ensure overlap doesn't exceed the segment size
	if c.overlap >= c.maxChars {
		c.overlap = c.maxChars / 4
	}

	return c
}

// Chunk splits text into ordered segments. Blank input produces no segments;
// input shorter than the segment size produces exactly one. Concatenating
// the [Start,End) spans in order covers the whole input with no gaps
// (overlap regions intentionally duplicate).
func (c *Chunker) Chunk(text string) []Segment {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	length := len(text)
	if length <= c.maxChars {
		return []Segment{{Text: text, Start: 0, End: length}}
	}

	estimated := length/(c.maxChars-c.overlap) + 1
	segments := make([]Segment, 0, estimated)

	start := 0
	for start < length && len(segments) < maxSegments {
		end := start + c.maxChars
		if end >= length {
			end = length
		} else {
			end = c.cutPoint(text, start, end)
		}

		segments = append(segments, Segment{
			Text:  text[start:end],
			Start: start,
			End:   end,
		})

		if end >= length {
			break
		}

		next := end - c.overlap
		if next < 0 {
			next = 0
		}
		// The next window must make progress past the previous start.
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return segments
}

// cutPoint searches backward from end for a sentence-terminal character
// followed by whitespace, without re-reading text before the minimum
// fraction of the window. Returns the adjusted end, or the original end
// when no boundary is found.
func (c *Chunker) cutPoint(text string, start, end int) int {
	floor := start + int(boundaryFraction*float64(c.maxChars))
	for i := end - 1; i > floor; i-- {
		if !isSentenceTerminal(text[i]) {
			continue
		}
		if i+1 >= len(text) || isWhitespace(text[i+1]) {
			return i + 1
		}
	}
	return end
}

func isSentenceTerminal(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
