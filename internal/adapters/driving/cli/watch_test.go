package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/mailpilot/internal/core/domain"
	"github.com/custodia-labs/mailpilot/internal/core/ports/driving"
)

// syncBuffer is a bytes.Buffer safe for concurrent writers and readers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchCmd_Use(t *testing.T) {
	assert.Equal(t, "watch", watchCmd.Use)
}

func TestWatchCmd_HasNowFlag(t *testing.T) {
	flag := watchCmd.Flags().Lookup("now")
	assert.NotNil(t, flag)
}

func TestWatchCmd_PollerNotConfigured(t *testing.T) {
	oldPoller := poller
	poller = nil
	defer func() {
		poller = oldPoller
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"watch"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "poller not configured")
}

func TestPrintEvents(t *testing.T) {
	buf := new(syncBuffer)
	rootCmd.SetOut(buf)
	defer rootCmd.SetOut(nil)

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan driving.PollerEvent, 4)
	events <- driving.PollerEvent{Kind: "online"}
	events <- driving.PollerEvent{Kind: "emails", Emails: []domain.Email{{ID: "1"}, {ID: "2"}}}
	events <- driving.PollerEvent{Kind: "replied", MessageID: "1"}
	events <- driving.PollerEvent{Kind: "offline"}

	done := make(chan struct{})
	go func() {
		printEvents(ctx, rootCmd, events)
		close(done)
	}()

	// The offline notice is the last event; wait until it lands.
	assert.Eventually(t, func() bool {
		return strings.Contains(buf.String(), "unreachable")
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done

	out := buf.String()
	assert.Contains(t, out, "connection established")
	assert.Contains(t, out, "2 message(s) awaiting replies")
	assert.Contains(t, out, "Replied to message 1")
}
