package services

import (
	"regexp"
	"strings"

	"github.com/custodia-labs/mailpilot/internal/core/domain"
	"github.com/custodia-labs/mailpilot/internal/logger"
)

// baseDenylist are keywords that always filter a message when they match
// the subject or sender as a whole word. Users can extend the list via
// settings, never shrink it.
var baseDenylist = []string{
	"unsubscribe",
	"newsletter",
	"no-reply",
	"noreply",
	"mailer-daemon",
	"postmaster",
	"notification",
	"promo",
}

// noReplyMarkers identify senders that must never receive an auto-reply,
// checked against sender and subject before drafting.
var noReplyMarkers = []string{
	"no-reply",
	"noreply",
	"do-not-reply",
	"donotreply",
	"mailer-daemon",
}

// EmailFilter applies the drop chain to fetched messages. Order matters and
// the first matching rule wins: provider spam label, denylist keyword,
// ignored sender, date window.
type EmailFilter struct {
	patterns map[string]*regexp.Regexp
}

// NewEmailFilter creates a filter with compiled base denylist patterns.
func NewEmailFilter() *EmailFilter {
	f := &EmailFilter{patterns: make(map[string]*regexp.Regexp)}
	for _, kw := range baseDenylist {
		f.compile(kw)
	}
	return f
}

func (f *EmailFilter) compile(keyword string) *regexp.Regexp {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return nil
	}
	if re, ok := f.patterns[keyword]; ok {
		return re
	}
	re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(keyword) + `\b`)
	if err != nil {
		return nil
	}
	f.patterns[keyword] = re
	return re
}

// Apply runs the filter chain over emails, recording a reason per drop.
func (f *EmailFilter) Apply(emails []domain.Email, settings domain.AssistantSettings) domain.FilterOutcome {
	outcome := domain.FilterOutcome{}

	for _, email := range emails {
		if reason, dropped := f.check(email, settings); dropped {
			logger.Debug("Filtered %q from %q: %s", email.Subject, email.From, reason)
			outcome.Dropped = append(outcome.Dropped, domain.DroppedEmail{Email: email, Reason: reason})
			continue
		}
		outcome.Kept = append(outcome.Kept, email)
	}

	return outcome
}

func (f *EmailFilter) check(email domain.Email, settings domain.AssistantSettings) (domain.FilterReason, bool) {
	// 1. Provider-native spam label.
	if email.HasLabel("SPAM") {
		return domain.FilterReasonSpamLabel, true
	}

	// 2. Denylist keyword against subject and sender, word-boundary match.
	haystack := email.Subject + " " + email.From
	for _, kw := range baseDenylist {
		if re := f.patterns[kw]; re != nil && re.MatchString(haystack) {
			return domain.FilterReasonDenylist, true
		}
	}
	for _, kw := range settings.DenylistExtra {
		if re := f.compile(kw); re != nil && re.MatchString(haystack) {
			return domain.FilterReasonDenylist, true
		}
	}

	// 3. User-configured ignored senders, substring match.
	if settings.IgnoresSender(email.From) {
		return domain.FilterReasonIgnoredSender, true
	}

	// 4. Date window.
	if settings.DateWindowConfigured() {
		date, ok := email.ParsedDate()
		if !ok {
			return domain.FilterReasonBadDate, true
		}
		if !settings.InDateWindow(date) {
			return domain.FilterReasonOutsideWindow, true
		}
	}

	return "", false
}

// IsNoReplySender reports whether the email must be skipped for reply
// drafting because its sender or subject carries a no-reply marker.
func IsNoReplySender(email domain.Email) bool {
	haystack := strings.ToLower(email.From + " " + email.Subject)
	for _, marker := range noReplyMarkers {
		if strings.Contains(haystack, marker) {
			return true
		}
	}
	return false
}
