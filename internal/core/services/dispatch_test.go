package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mailpilot/internal/core/domain"
)

func testSettings(s domain.AssistantSettings) SettingsProvider {
	return func() domain.AssistantSettings { return s }
}

func TestDispatch_Success(t *testing.T) {
	transport := &mockTransport{}
	state := &mockReplyState{}
	d := NewDispatcher(transport, state, &mockAudit{}, testSettings(domain.AssistantSettings{
		Signature: "Best, Bob",
	}))

	original := domain.Email{
		ID:      "msg-1",
		From:    "Alice Example <alice@example.com>",
		Subject: "Order status",
	}

	err := d.Dispatch(context.Background(), original, "Your order shipped.\nTracking inside.")
	require.NoError(t, err)

	require.Len(t, transport.sent, 1)
	sent := transport.sent[0]
	assert.Equal(t, "alice@example.com", sent.To)
	assert.Equal(t, "Re: Order status", sent.Subject)
	assert.Equal(t, "msg-1", sent.InReplyTo)
	assert.Contains(t, sent.HTMLBody, "Your order shipped.<br>")

	require.Len(t, state.replyLog, 1)
	assert.Equal(t, "msg-1", state.replyLog[0].ID)
	assert.Equal(t, "Best, Bob", state.replyLog[0].Signature)

	assert.Equal(t, []string{"msg-1"}, transport.markedRead)
}

func TestDispatch_SendFailure(t *testing.T) {
	transport := &mockTransport{sendErr: errors.New("smtp down")}
	state := &mockReplyState{}
	audit := &mockAudit{}
	d := NewDispatcher(transport, state, audit, nil)

	err := d.Dispatch(context.Background(), domain.Email{ID: "msg-1", From: "a@b.c"}, "body")
	require.Error(t, err)

	assert.Empty(t, state.replyLog, "failed send must not be logged")
	assert.Empty(t, transport.markedRead)
	assert.NotEmpty(t, audit.events)
}

func TestDispatch_MarkReadFailureStillLogsSend(t *testing.T) {
	transport := &mockTransport{markReadErr: errors.New("label update failed")}
	state := &mockReplyState{}
	d := NewDispatcher(transport, state, &mockAudit{}, nil)

	err := d.Dispatch(context.Background(), domain.Email{ID: "msg-1", From: "a@b.c"}, "body")
	require.Error(t, err)

	// The reply went out, so the log records it even though the dispatch
	// as a whole failed.
	assert.Len(t, transport.sent, 1)
	assert.Len(t, state.replyLog, 1)
}

func TestDispatch_NoSenderAddress(t *testing.T) {
	d := NewDispatcher(&mockTransport{}, &mockReplyState{}, nil, nil)
	err := d.Dispatch(context.Background(), domain.Email{ID: "msg-1", From: "   "}, "body")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestReplySubject(t *testing.T) {
	assert.Equal(t, "Re: Hello", replySubject("Hello"))
	assert.Equal(t, "Re: Hello", replySubject("Re: Hello"))
	assert.Equal(t, "RE: Hello", replySubject("RE: Hello"))
}

func TestSenderAddress(t *testing.T) {
	assert.Equal(t, "alice@example.com", senderAddress("Alice <alice@example.com>"))
	assert.Equal(t, "bob@example.com", senderAddress("bob@example.com"))
	assert.Equal(t, "not an address", senderAddress("  not an address  "))
}

func TestRenderHTMLBody(t *testing.T) {
	got := renderHTMLBody("a < b\nnext")
	assert.Contains(t, got, "a &lt; b<br>")
	assert.Contains(t, got, "next")
	assert.NotContains(t, got, "a < b")
}
