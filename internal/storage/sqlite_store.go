package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	serrors "git.home.luguber.info/inful/streakd/internal/errors"
	"git.home.luguber.info/inful/streakd/internal/streak"
)

// SQLiteStore keeps the streak document in a single-row table. Saves are one
// upsert inside a transaction.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens (and initializes) the database at dbPath.
// Use ":memory:" for an in-memory database.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, serrors.StorageFailure("open sqlite database", err).WithContext("path", dbPath)
	}
	// One connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db, dbPath: dbPath}
	if err := store.initialize(ctx); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, serrors.StorageFailure("initialize schema", err).WithContext("path", dbPath)
	}
	return store, nil
}

func (s *SQLiteStore) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS streak_document (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		body BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Lock holds <dbPath>.lock until the returned func is called. In-memory
// databases are private to the process and need no lock.
func (s *SQLiteStore) Lock(ctx context.Context) (func() error, error) {
	if s.dbPath == ":memory:" {
		return func() error { return nil }, nil
	}
	return lockFile(ctx, s.dbPath+".lock")
}

// Load reads and decodes the document.
func (s *SQLiteStore) Load(ctx context.Context) (*streak.StreakSet, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, "SELECT body FROM streak_document WHERE id = 1").Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, serrors.DocumentMissing(s.dbPath)
	}
	if err != nil {
		return nil, serrors.StorageFailure("query document", err).WithContext("path", s.dbPath)
	}
	set, err := streak.Unmarshal(body)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.dbPath, err)
	}
	return set, nil
}

// Save encodes set and replaces the stored row.
func (s *SQLiteStore) Save(ctx context.Context, set *streak.StreakSet) error {
	body, err := streak.Marshal(set)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return serrors.StorageFailure("begin transaction", err).WithContext("path", s.dbPath)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO streak_document (id, body, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		body, time.Now().Unix(),
	)
	if err != nil {
		_ = tx.Rollback()
		return serrors.StorageFailure("upsert document", err).WithContext("path", s.dbPath)
	}
	if err := tx.Commit(); err != nil {
		return serrors.StorageFailure("commit", err).WithContext("path", s.dbPath)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
