package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mailpilot/internal/core/domain"
)

func TestEmailFilter_Chain(t *testing.T) {
	f := NewEmailFilter()
	settings := domain.AssistantSettings{
		IgnoredSenders: []string{"blocked@example.com"},
	}

	emails := []domain.Email{
		{ID: "1", From: "spam@example.com", Subject: "Hello", LabelIDs: []string{"SPAM"}},
		{ID: "2", From: "newsletter@shop.example", Subject: "Weekly deals"},
		{ID: "3", From: "Blocked@Example.com", Subject: "Hi there"},
		{ID: "4", From: "alice@example.com", Subject: "Question about my order", Date: time.Now().Format(time.RFC1123Z)},
	}

	outcome := f.Apply(emails, settings)

	require.Len(t, outcome.Kept, 1)
	assert.Equal(t, "4", outcome.Kept[0].ID)

	require.Len(t, outcome.Dropped, 3)
	assert.Equal(t, domain.FilterReasonSpamLabel, outcome.Dropped[0].Reason)
	assert.Equal(t, domain.FilterReasonDenylist, outcome.Dropped[1].Reason)
	assert.Equal(t, domain.FilterReasonIgnoredSender, outcome.Dropped[2].Reason)
}

func TestEmailFilter_SpamLabelWinsFirst(t *testing.T) {
	f := NewEmailFilter()
	// Message matches both spam label and denylist; the first rule records
	// the reason.
	emails := []domain.Email{
		{ID: "1", From: "newsletter@x.example", LabelIDs: []string{"SPAM"}},
	}
	outcome := f.Apply(emails, domain.AssistantSettings{})
	require.Len(t, outcome.Dropped, 1)
	assert.Equal(t, domain.FilterReasonSpamLabel, outcome.Dropped[0].Reason)
}

func TestEmailFilter_DenylistWordBoundary(t *testing.T) {
	f := NewEmailFilter()

	t.Run("whole word matches", func(t *testing.T) {
		outcome := f.Apply([]domain.Email{
			{ID: "1", From: "a@b.c", Subject: "Please unsubscribe me"},
		}, domain.AssistantSettings{})
		require.Len(t, outcome.Dropped, 1)
		assert.Equal(t, domain.FilterReasonDenylist, outcome.Dropped[0].Reason)
	})

	t.Run("substring inside a word does not match", func(t *testing.T) {
		outcome := f.Apply([]domain.Email{
			{ID: "1", From: "a@b.c", Subject: "repromotion planning"},
		}, domain.AssistantSettings{})
		assert.Len(t, outcome.Kept, 1)
	})

	t.Run("case insensitive", func(t *testing.T) {
		outcome := f.Apply([]domain.Email{
			{ID: "1", From: "a@b.c", Subject: "UNSUBSCRIBE NOW"},
		}, domain.AssistantSettings{})
		assert.Len(t, outcome.Dropped, 1)
	})

	t.Run("configured additions", func(t *testing.T) {
		settings := domain.AssistantSettings{DenylistExtra: []string{"lottery"}}
		outcome := f.Apply([]domain.Email{
			{ID: "1", From: "a@b.c", Subject: "You won the lottery"},
		}, settings)
		require.Len(t, outcome.Dropped, 1)
		assert.Equal(t, domain.FilterReasonDenylist, outcome.Dropped[0].Reason)
	})
}

func TestEmailFilter_DateWindow(t *testing.T) {
	f := NewEmailFilter()
	settings := domain.AssistantSettings{
		MinDate: "2026-01-01",
		MaxDate: "2026-01-31",
	}

	inWindow := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	lastDay := time.Date(2026, 1, 31, 23, 30, 0, 0, time.UTC)
	before := time.Date(2025, 12, 31, 23, 59, 0, 0, time.UTC)
	after := time.Date(2026, 2, 1, 0, 1, 0, 0, time.UTC)

	emails := []domain.Email{
		{ID: "in", From: "a@b.c", Date: inWindow.Format(time.RFC1123Z)},
		{ID: "last-day", From: "a@b.c", Date: lastDay.Format(time.RFC1123Z)},
		{ID: "before", From: "a@b.c", Date: before.Format(time.RFC1123Z)},
		{ID: "after", From: "a@b.c", Date: after.Format(time.RFC1123Z)},
		{ID: "bad-date", From: "a@b.c", Date: "not a date"},
	}

	outcome := f.Apply(emails, settings)

	require.Len(t, outcome.Kept, 2)
	assert.Equal(t, "in", outcome.Kept[0].ID)
	assert.Equal(t, "last-day", outcome.Kept[1].ID)

	reasons := make(map[string]domain.FilterReason)
	for _, drop := range outcome.Dropped {
		reasons[drop.Email.ID] = drop.Reason
	}
	assert.Equal(t, domain.FilterReasonOutsideWindow, reasons["before"])
	assert.Equal(t, domain.FilterReasonOutsideWindow, reasons["after"])
	assert.Equal(t, domain.FilterReasonBadDate, reasons["bad-date"])
}

func TestEmailFilter_NoWindowKeepsBadDates(t *testing.T) {
	f := NewEmailFilter()
	outcome := f.Apply([]domain.Email{
		{ID: "1", From: "a@b.c", Date: "garbage"},
	}, domain.AssistantSettings{})
	assert.Len(t, outcome.Kept, 1)
}

func TestIsNoReplySender(t *testing.T) {
	assert.True(t, IsNoReplySender(domain.Email{From: "no-reply@service.example"}))
	assert.True(t, IsNoReplySender(domain.Email{From: "x@y.z", Subject: "DoNotReply: receipt"}))
	assert.False(t, IsNoReplySender(domain.Email{From: "alice@example.com", Subject: "Hello"}))
}
