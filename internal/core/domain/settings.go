package domain

import (
	"strings"
	"time"
)

// AssistantSettings is the user configuration consumed read-only by the
// poller and reply assembly. It is loaded from the config store and can be
// swapped atomically on hot reload.
type AssistantSettings struct {
	// IgnoredSenders are substring matches against the From header.
	IgnoredSenders []string

	// DenylistExtra are keywords added to the built-in denylist.
	DenylistExtra []string

	// MinDate and MaxDate bound the accepted message dates, formatted
	// "2006-01-02". Empty means unbounded on that side.
	MinDate string
	MaxDate string

	// AutoSend enables automatic reply dispatch.
	AutoSend bool

	// SendStart and SendEnd bound the local time of day during which
	// replies may be sent, formatted "15:04". Inclusive on both ends.
	SendStart string
	SendEnd   string

	// Greeting and Signature are prepended/appended to generated replies.
	Greeting  string
	Signature string

	// WebContextURLs are fetched and included in the prompt context.
	WebContextURLs []string

	// IngestEnabled is the knowledge base kill switch. When false,
	// AddDocuments is a no-op.
	IngestEnabled bool

	// PollInterval is the mailbox check period.
	PollInterval time.Duration
}

// DateWindowConfigured reports whether any date filtering applies.
func (s AssistantSettings) DateWindowConfigured() bool {
	return s.MinDate != "" || s.MaxDate != ""
}

// InDateWindow reports whether t falls inside [MinDate 00:00:00,
// MaxDate 23:59:59] in t's location.
func (s AssistantSettings) InDateWindow(t time.Time) bool {
	if s.MinDate != "" {
		min, err := time.ParseInLocation("2006-01-02", s.MinDate, t.Location())
		if err == nil && t.Before(min) {
			return false
		}
	}
	if s.MaxDate != "" {
		max, err := time.ParseInLocation("2006-01-02", s.MaxDate, t.Location())
		if err == nil && !t.Before(max.Add(24*time.Hour)) {
			return false
		}
	}
	return true
}

// InSendWindow reports whether the clock time "HH:MM" falls inside the
// configured send window. String comparison works because the format is
// fixed-width; both ends are inclusive. An unconfigured window allows all.
func (s AssistantSettings) InSendWindow(clock string) bool {
	if s.SendStart == "" || s.SendEnd == "" {
		return true
	}
	return clock >= s.SendStart && clock <= s.SendEnd
}

// IgnoresSender reports whether from matches any ignored-sender substring.
// Matching is case-insensitive.
func (s AssistantSettings) IgnoresSender(from string) bool {
	lower := strings.ToLower(from)
	for _, ig := range s.IgnoredSenders {
		ig = strings.TrimSpace(ig)
		if ig == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(ig)) {
			return true
		}
	}
	return false
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() AssistantSettings {
	return AssistantSettings{
		IngestEnabled: true,
		PollInterval:  2 * time.Minute,
	}
}
