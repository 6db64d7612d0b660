package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mailpilot/internal/core/domain"
)

func TestRecordStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knowledge.json")
	store, err := NewRecordStore(path)
	require.NoError(t, err)

	ctx := context.Background()

	// Fresh store is empty, not an error.
	records, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	want := []domain.ChunkRecord{
		{
			ID:          "src-0",
			SourceID:    "src",
			ChunkIndex:  0,
			TotalChunks: 2,
			Text:        "first chunk",
			ChunkEnd:    11,
			Embedding:   []float32{0.1, 0.2},
			Provenance:  domain.Provenance{Kind: domain.ProvenanceFile, URI: "notes.txt"},
		},
		{
			ID:          "src-1",
			SourceID:    "src",
			ChunkIndex:  1,
			TotalChunks: 2,
			Text:        "second chunk",
			ChunkStart:  11,
			ChunkEnd:    23,
		},
	}
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRecordStore_NilEmbeddingSurvives(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knowledge.json")
	store, err := NewRecordStore(path)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, []domain.ChunkRecord{
		{ID: "a-0", SourceID: "a", Text: "kept without vector"},
	}))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "kept without vector", got[0].Text)
	assert.False(t, got[0].HasEmbedding())
}

func TestRecordStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knowledge.json")
	store, err := NewRecordStore(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err = store.Load(context.Background())
	assert.Error(t, err)
}

func TestReplyStateStore_RepliedIDs(t *testing.T) {
	store, err := NewReplyStateStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()

	ids, err := store.LoadRepliedIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, store.SaveRepliedIDs(ctx, []string{"m1", "m2"}))

	ids, err = store.LoadRepliedIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2"}, ids)
}

func TestReplyStateStore_ReplyLogCap(t *testing.T) {
	store, err := NewReplyStateStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < domain.ReplyLogCap+10; i++ {
		entry := domain.ReplyLogEntry{ID: "m", To: "a@b.c", Date: time.Now()}
		require.NoError(t, store.AppendReplyLog(ctx, entry))
	}

	entries, err := store.LoadReplyLog(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, domain.ReplyLogCap)
}

func TestReplyStateStore_CachedEmails(t *testing.T) {
	store, err := NewReplyStateStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	want := []domain.Email{
		{ID: "m1", From: "alice@example.com", Subject: "Hi"},
	}
	require.NoError(t, store.SaveCachedEmails(ctx, want))

	got, err := store.LoadCachedEmails(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Overwrite with empty mirrors the empty filtered set.
	require.NoError(t, store.SaveCachedEmails(ctx, nil))
	got, err = store.LoadCachedEmails(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAuditLog_AppendsTimestampedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	audit, err := NewAuditLog(path)
	require.NoError(t, err)
	audit.now = func() time.Time {
		return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	}

	audit.Event("filtered %s: %s", "m1", "spam_label")
	audit.Event("sent reply to %s", "alice@example.com")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "2026-03-01T10:00:00Z "))
	assert.Contains(t, lines[0], "filtered m1: spam_label")
	assert.Contains(t, lines[1], "sent reply to alice@example.com")
}
