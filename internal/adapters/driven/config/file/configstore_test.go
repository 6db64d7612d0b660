package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestConfigStore_SetAndGet(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	err = store.Set("test_key", "test_value")
	require.NoError(t, err)

	val, ok := store.Get("test_key")
	assert.True(t, ok)
	assert.Equal(t, "test_value", val)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("str", "hello"))
	require.NoError(t, store.Set("num", 42))
	require.NoError(t, store.Set("flag", true))
	require.NoError(t, store.Set("list", []string{"a", "b"}))

	assert.Equal(t, "hello", store.GetString("str"))
	assert.Equal(t, 42, store.GetInt("num"))
	assert.True(t, store.GetBool("flag"))
	assert.Equal(t, []string{"a", "b"}, store.GetStringSlice("list"))

	// Absent keys fall back to zero values
	assert.Equal(t, "", store.GetString("missing"))
	assert.Equal(t, 0, store.GetInt("missing"))
	assert.False(t, store.GetBool("missing"))
	assert.Nil(t, store.GetStringSlice("missing"))

	// Mistyped values fall back too
	assert.Equal(t, "", store.GetString("num"))
	assert.Equal(t, 0, store.GetInt("str"))
	assert.False(t, store.GetBool("str"))
}

func TestConfigStore_PersistsAcrossInstances(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store.Set("assistant.greeting", "Hello,"))
	require.NoError(t, store.Set("assistant.poll_interval_seconds", 30))

	reopened, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "Hello,", reopened.GetString("assistant.greeting"))
	assert.Equal(t, 30, reopened.GetInt("assistant.poll_interval_seconds"))
}

func TestConfigStore_FlattensNestedTables(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	content := `
[assistant]
greeting = "Hi,"
auto_send = true
ignored_senders = ["spam@example.com"]
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "Hi,", store.GetString("assistant.greeting"))
	assert.True(t, store.GetBool("assistant.auto_send"))
	assert.Equal(t, []string{"spam@example.com"}, store.GetStringSlice("assistant.ignored_senders"))
}

func TestConfigStore_Keys(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("b", 1))
	require.NoError(t, store.Set("a", 2))

	assert.Equal(t, []string{"a", "b"}, store.Keys())
}

func TestSettings_Defaults(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	settings := NewSettings(store)
	current := settings.Current()

	assert.True(t, current.IngestEnabled)
	assert.Equal(t, 2*time.Minute, current.PollInterval)
	assert.False(t, current.AutoSend)
}

func TestSettings_ReadsConfiguredValues(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set(KeyGreeting, "Dear customer,"))
	require.NoError(t, store.Set(KeyAutoSend, true))
	require.NoError(t, store.Set(KeySendStart, "09:00"))
	require.NoError(t, store.Set(KeySendEnd, "17:00"))
	require.NoError(t, store.Set(KeyIngestEnabled, false))
	require.NoError(t, store.Set(KeyPollSeconds, 45))
	require.NoError(t, store.Set(KeyIgnoredSenders, []string{"blocked@x.y"}))

	settings := NewSettings(store)
	current := settings.Current()

	assert.Equal(t, "Dear customer,", current.Greeting)
	assert.True(t, current.AutoSend)
	assert.Equal(t, "09:00", current.SendStart)
	assert.Equal(t, "17:00", current.SendEnd)
	assert.False(t, current.IngestEnabled)
	assert.Equal(t, 45*time.Second, current.PollInterval)
	assert.Equal(t, []string{"blocked@x.y"}, current.IgnoredSenders)
}

func TestSettings_Reload(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	settings := NewSettings(store)
	assert.Empty(t, settings.Current().Greeting)

	// Simulate an external edit, then reload.
	content := "[assistant]\ngreeting = \"Updated,\"\n"
	require.NoError(t, os.WriteFile(store.Path(), []byte(content), 0600))

	require.NoError(t, settings.Reload())
	assert.Equal(t, "Updated,", settings.Current().Greeting)
}
