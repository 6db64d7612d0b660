package domain

// FilterReason explains why a fetched message was dropped before reply
// consideration. Reasons are recorded per message for audit.
type FilterReason string

// Filter reasons, in the order the filter chain applies them.
const (
	// FilterReasonSpamLabel drops messages carrying a provider-native
	// spam label.
	FilterReasonSpamLabel FilterReason = "spam_label"

	// FilterReasonDenylist drops messages whose subject or sender matches
	// a denylist keyword.
	FilterReasonDenylist FilterReason = "denylist_keyword"

	// FilterReasonIgnoredSender drops messages from a user-ignored sender.
	FilterReasonIgnoredSender FilterReason = "ignored_sender"

	// FilterReasonOutsideWindow drops messages dated outside the configured
	// date window.
	FilterReasonOutsideWindow FilterReason = "outside_date_window"

	// FilterReasonBadDate drops messages whose date cannot be parsed while
	// a date window is configured.
	FilterReasonBadDate FilterReason = "unparseable_date"
)

// DroppedEmail records one filtered-out message with its reason.
type DroppedEmail struct {
	Email  Email
	Reason FilterReason
}

// FilterOutcome is the result of running the filter chain over a fetch.
type FilterOutcome struct {
	// Kept are the messages that survived every filter, in fetch order.
	Kept []Email

	// Dropped are the filtered messages with their reasons.
	Dropped []DroppedEmail
}
