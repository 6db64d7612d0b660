package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/custodia-labs/mailpilot/internal/core/ports/driven"
)

// cycleStore implements driven.CycleStore.
type cycleStore struct {
	store *Store
}

var _ driven.CycleStore = (*cycleStore)(nil)

// Record stores a completed cycle result.
func (s *cycleStore) Record(ctx context.Context, result driven.CycleResult) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO poll_cycles (id, started_at, ended_at, fetched, filtered, replied, offline, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			started_at = excluded.started_at,
			ended_at = excluded.ended_at,
			fetched = excluded.fetched,
			filtered = excluded.filtered,
			replied = excluded.replied,
			offline = excluded.offline,
			error = excluded.error
	`, result.ID,
		result.StartedAt.UTC().Format(time.RFC3339Nano),
		result.EndedAt.UTC().Format(time.RFC3339Nano),
		result.Fetched, result.Filtered, result.Replied,
		boolToInt(result.Offline), nullString(result.Error))

	if err != nil {
		return fmt.Errorf("recording poll cycle: %w", err)
	}
	return nil
}

// List returns the most recent results, newest first.
func (s *cycleStore) List(ctx context.Context, limit int) ([]driven.CycleResult, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, started_at, ended_at, fetched, filtered, replied, offline, error
		FROM poll_cycles
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying poll cycles: %w", err)
	}
	defer rows.Close()

	var results []driven.CycleResult //nolint:prealloc // size unknown from query
	for rows.Next() {
		result, err := scanCycleResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating poll cycles: %w", err)
	}

	return results, nil
}

// Prune drops all but the newest keep results.
func (s *cycleStore) Prune(ctx context.Context, keep int) error {
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM poll_cycles
		WHERE id NOT IN (
			SELECT id FROM poll_cycles ORDER BY started_at DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("pruning poll cycles: %w", err)
	}
	return nil
}

// Close closes the underlying store.
func (s *cycleStore) Close() error {
	return s.store.Close()
}

// scanCycleResult scans one poll cycle row.
func scanCycleResult(rows *sql.Rows) (driven.CycleResult, error) {
	var result driven.CycleResult
	var startedAt, endedAt string
	var offline int
	var errText sql.NullString

	if err := rows.Scan(&result.ID, &startedAt, &endedAt,
		&result.Fetched, &result.Filtered, &result.Replied, &offline, &errText); err != nil {
		return driven.CycleResult{}, fmt.Errorf("scanning poll cycle: %w", err)
	}

	result.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
	result.EndedAt, _ = time.Parse(time.RFC3339Nano, endedAt)
	result.Offline = offline == 1
	if errText.Valid {
		result.Error = errText.String
	}
	return result, nil
}

// boolToInt converts a bool to its SQLite integer form.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// nullString returns a NULL for empty strings.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
