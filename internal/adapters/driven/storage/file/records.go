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

// Ensure RecordStore implements the interface.
var _ driven.RecordStore = (*RecordStore)(nil)

// RecordStore persists the knowledge base as one flat JSON array. The store
// rewrites the whole file per save; writes go through a temp file and rename
// so a crash never leaves a truncated knowledge base behind.
type RecordStore struct {
	mu       sync.Mutex
	filePath string
}

// NewRecordStore creates a record store backed by filePath, creating the
// parent directory if needed.
func NewRecordStore(filePath string) (*RecordStore, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0700); err != nil {
		return nil, err
	}
	return &RecordStore{filePath: filePath}, nil
}

// Load returns all stored records in insertion order. A missing file is an
// empty knowledge base, not an error.
func (s *RecordStore) Load(_ context.Context) ([]domain.ChunkRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.filePath, err)
	}

	var records []domain.ChunkRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.filePath, err)
	}
	return records, nil
}

// Save rewrites the full record set.
func (s *RecordStore) Save(_ context.Context, records []domain.ChunkRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if records == nil {
		records = []domain.ChunkRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	return writeFileAtomic(s.filePath, data)
}

// Path returns the backing file path.
func (s *RecordStore) Path() string {
	return s.filePath
}

// writeFileAtomic writes data to a sibling temp file and renames it over
// path, so readers see either the old or the new content.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
