package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS rollover_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	entry_type TEXT NOT NULL,
	at_unix_nano INTEGER NOT NULL,
	payload BLOB NOT NULL,
	metadata TEXT
);
CREATE INDEX IF NOT EXISTS idx_rollover_entries_at ON rollover_entries(at_unix_nano);
`

// SQLiteStore is the journal on SQLite. A single connection serializes
// access, so the store needs no lock of its own.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the journal at dbPath, ":memory:" included.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize journal schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Append stores e. A zero timestamp is recorded as now.
func (s *SQLiteStore) Append(ctx context.Context, e Entry) error {
	var metadata []byte
	if md := e.Metadata(); md != nil {
		var err error
		if metadata, err = json.Marshal(md); err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
	}
	at := e.Timestamp()
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO rollover_entries (run_id, entry_type, at_unix_nano, payload, metadata) VALUES (?, ?, ?, ?, ?)",
		e.RunID(), e.Type(), at.UnixNano(), e.Payload(), metadata)
	if err != nil {
		return fmt.Errorf("append %s entry for run %s: %w", e.Type(), e.RunID(), err)
	}
	return nil
}

// GetRange returns the entries recorded between start and end inclusive.
func (s *SQLiteStore) GetRange(ctx context.Context, start, end time.Time) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, run_id, entry_type, at_unix_nano, payload, metadata FROM rollover_entries WHERE at_unix_nano BETWEEN ? AND ? ORDER BY at_unix_nano, id",
		start.UnixNano(), end.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e := &BaseEntry{}
		var at int64
		var metadata []byte
		if err := rows.Scan(&e.EntryID, &e.EntryRunID, &e.EntryType, &at, &e.EntryPayload, &metadata); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		e.EntryTimestamp = time.Unix(0, at)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.EntryMetadata); err != nil {
				return nil, fmt.Errorf("decode metadata of entry %d: %w", e.EntryID, err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
