package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	serrors "git.home.luguber.info/inful/streakd/internal/errors"
	"git.home.luguber.info/inful/streakd/internal/streak"
)

// FSStore keeps the streak document as a single JSON file. Saves go to a
// temporary file in the same directory which then replaces the document with
// os.Rename, so readers never observe a partial write.
type FSStore struct {
	path string
	mu   sync.RWMutex
}

// NewFSStore creates a file store, making sure the parent directory exists.
func NewFSStore(path string) (*FSStore, error) {
	if path == "" {
		return nil, serrors.ConfigInvalid("store.path", "must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, serrors.StorageFailure("create directory", err).WithContext("path", path)
	}
	return &FSStore{path: path}, nil
}

// Lock holds <path>.lock until the returned func is called. Every streakd
// process sharing the document takes it around load-mutate-save.
func (fs *FSStore) Lock(ctx context.Context) (func() error, error) {
	return lockFile(ctx, fs.path+".lock")
}

// Load reads and decodes the document.
func (fs *FSStore) Load(ctx context.Context) (*streak.StreakSet, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	// #nosec G304 - path comes from operator configuration
	data, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, serrors.DocumentMissing(fs.path)
		}
		return nil, serrors.StorageFailure("read", err).WithContext("path", fs.path)
	}
	s, err := streak.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", fs.path, err)
	}
	return s, nil
}

// Save encodes s and atomically replaces the document.
func (fs *FSStore) Save(ctx context.Context, s *streak.StreakSet) error {
	data, err := streak.Marshal(s)
	if err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(fs.path), "."+filepath.Base(fs.path)+".*.tmp")
	if err != nil {
		return serrors.StorageFailure("create temporary file", err).WithContext("path", fs.path)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return serrors.StorageFailure("write temporary file", err).WithContext("path", tmpPath)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return serrors.StorageFailure("sync temporary file", err).WithContext("path", tmpPath)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return serrors.StorageFailure("close temporary file", err).WithContext("path", tmpPath)
	}
	if err := os.Chmod(tmpPath, 0600); err != nil {
		cleanup()
		return serrors.StorageFailure("chmod temporary file", err).WithContext("path", tmpPath)
	}

	// Atomically replace the document
	if err := os.Rename(tmpPath, fs.path); err != nil {
		cleanup()
		return serrors.StorageFailure("replace document", err).WithContext("path", fs.path)
	}
	return nil
}

// Close is a no-op; the file store holds no open handles.
func (fs *FSStore) Close() error { return nil }
