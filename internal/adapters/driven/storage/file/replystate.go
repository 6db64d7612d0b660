package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/custodia-labs/mailpilot/internal/core/domain"
	"github.com/custodia-labs/mailpilot/internal/core/ports/driven"
)

// Ensure ReplyStateStore implements the interface.
var _ driven.ReplyStateStore = (*ReplyStateStore)(nil)

// File names inside the state directory.
const (
	repliedIDsFile   = "replied.json"
	replyLogFile     = "replylog.json"
	cachedEmailsFile = "emails.json"
)

// ReplyStateStore persists the reply bookkeeping as three JSON files in one
// directory: answered ids, the capped reply log and the cached filtered
// email set. Each file is rewritten whole, atomically.
type ReplyStateStore struct {
	mu  sync.Mutex
	dir string
}

// NewReplyStateStore creates the store rooted at dir, creating it if needed.
func NewReplyStateStore(dir string) (*ReplyStateStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	return &ReplyStateStore{dir: dir}, nil
}

// LoadRepliedIDs returns the set of already-answered message ids.
func (s *ReplyStateStore) LoadRepliedIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	if err := s.readJSON(repliedIDsFile, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// SaveRepliedIDs rewrites the replied id log.
func (s *ReplyStateStore) SaveRepliedIDs(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ids == nil {
		ids = []string{}
	}
	return s.writeJSON(repliedIDsFile, ids)
}

// AppendReplyLog appends an entry, dropping the oldest beyond the cap.
func (s *ReplyStateStore) AppendReplyLog(_ context.Context, entry domain.ReplyLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []domain.ReplyLogEntry
	if err := s.readJSON(replyLogFile, &entries); err != nil {
		return err
	}

	entries = append(entries, entry)
	if len(entries) > domain.ReplyLogCap {
		entries = entries[len(entries)-domain.ReplyLogCap:]
	}
	return s.writeJSON(replyLogFile, entries)
}

// LoadReplyLog returns the retained reply log entries, oldest first.
func (s *ReplyStateStore) LoadReplyLog(_ context.Context) ([]domain.ReplyLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []domain.ReplyLogEntry
	if err := s.readJSON(replyLogFile, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// SaveCachedEmails mirrors the latest filtered fetch.
func (s *ReplyStateStore) SaveCachedEmails(_ context.Context, emails []domain.Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if emails == nil {
		emails = []domain.Email{}
	}
	return s.writeJSON(cachedEmailsFile, emails)
}

// LoadCachedEmails returns the last mirrored filtered set.
func (s *ReplyStateStore) LoadCachedEmails(_ context.Context) ([]domain.Email, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var emails []domain.Email
	if err := s.readJSON(cachedEmailsFile, &emails); err != nil {
		return nil, err
	}
	return emails, nil
}

// readJSON decodes the named file into out. A missing file leaves out at its
// zero value.
func (s *ReplyStateStore) readJSON(name string, out any) error {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (s *ReplyStateStore) writeJSON(name string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return writeFileAtomic(filepath.Join(s.dir, name), data)
}
