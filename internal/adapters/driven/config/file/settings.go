package file

import (
	"sync"
	"time"

	"github.com/custodia-labs/mailpilot/internal/core/domain"
	"github.com/custodia-labs/mailpilot/internal/logger"
)

// Config keys for the assistant settings, dot-notation per TOML section.
const (
	KeyIgnoredSenders   = "assistant.ignored_senders"
	KeyDenylistKeywords = "assistant.denylist_keywords"
	KeyMinDate          = "assistant.min_date"
	KeyMaxDate          = "assistant.max_date"
	KeyAutoSend         = "assistant.auto_send"
	KeySendStart        = "assistant.send_start"
	KeySendEnd          = "assistant.send_end"
	KeyGreeting         = "assistant.greeting"
	KeySignature        = "assistant.signature"
	KeyWebContextURLs   = "assistant.web_context_urls"
	KeyIngestEnabled    = "assistant.ingest_enabled"
	KeyPollSeconds      = "assistant.poll_interval_seconds"
)

// Config keys for the mail transport.
const (
	KeyMailProvider = "mail.provider"
	KeyMailIMAPHost = "mail.imap_host"
	KeyMailIMAPPort = "mail.imap_port"
	KeyMailSMTPHost = "mail.smtp_host"
	KeyMailSMTPPort = "mail.smtp_port"
	KeyMailUsername = "mail.username"
	KeyMailPassword = "mail.password"
	KeyMailFrom     = "mail.from"
	KeyMailMailbox  = "mail.mailbox"
)

// Settings bridges the raw config store and the typed domain settings. It
// caches the last loaded value; Reload re-reads the file and swaps the cache
// atomically so readers never see a half-applied configuration.
type Settings struct {
	store *ConfigStore

	mu      sync.RWMutex
	current domain.AssistantSettings
}

// NewSettings builds the typed settings view over the config store and loads
// the current values.
func NewSettings(store *ConfigStore) *Settings {
	s := &Settings{store: store}
	s.mu.Lock()
	s.current = s.read()
	s.mu.Unlock()
	return s
}

// Current returns the active settings snapshot.
func (s *Settings) Current() domain.AssistantSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Provider adapts Current to the services.SettingsProvider shape.
func (s *Settings) Provider() func() domain.AssistantSettings {
	return s.Current
}

// Reload re-reads the config file and swaps the cached settings.
func (s *Settings) Reload() error {
	if err := s.store.Load(); err != nil {
		return err
	}
	next := s.read()

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()

	logger.Debug("Settings reloaded from %s", s.store.Path())
	return nil
}

// read materialises the typed settings from the store, falling back to the
// defaults for anything unset.
func (s *Settings) read() domain.AssistantSettings {
	out := domain.DefaultSettings()

	out.IgnoredSenders = s.store.GetStringSlice(KeyIgnoredSenders)
	out.DenylistExtra = s.store.GetStringSlice(KeyDenylistKeywords)
	out.MinDate = s.store.GetString(KeyMinDate)
	out.MaxDate = s.store.GetString(KeyMaxDate)
	out.AutoSend = s.store.GetBool(KeyAutoSend)
	out.SendStart = s.store.GetString(KeySendStart)
	out.SendEnd = s.store.GetString(KeySendEnd)
	out.Greeting = s.store.GetString(KeyGreeting)
	out.Signature = s.store.GetString(KeySignature)
	out.WebContextURLs = s.store.GetStringSlice(KeyWebContextURLs)

	if _, ok := s.store.Get(KeyIngestEnabled); ok {
		out.IngestEnabled = s.store.GetBool(KeyIngestEnabled)
	}
	if secs := s.store.GetInt(KeyPollSeconds); secs > 0 {
		out.PollInterval = time.Duration(secs) * time.Second
	}

	return out
}
