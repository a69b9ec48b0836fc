package storage

import (
	"context"
	"sync"

	serrors "git.home.luguber.info/inful/streakd/internal/errors"
	"git.home.luguber.info/inful/streakd/internal/streak"
)

// MemoryStore is an in-process store used by tests and dry runs. It keeps the
// encoded document so loads never alias a caller's set.
type MemoryStore struct {
	mu    sync.RWMutex
	data  []byte
	calls MemoryCalls
}

// MemoryCalls tracks method invocations for test verification.
type MemoryCalls struct {
	Load int
	Save int
}

// NewMemoryStore creates an empty store; the first Load reports a missing document.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load decodes the current document.
func (m *MemoryStore) Load(ctx context.Context) (*streak.StreakSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Load++

	if m.data == nil {
		return nil, serrors.DocumentMissing("memory")
	}
	return streak.Unmarshal(m.data)
}

// Save encodes and keeps s.
func (m *MemoryStore) Save(ctx context.Context, s *streak.StreakSet) error {
	data, err := streak.Marshal(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Save++
	m.data = data
	return nil
}

// Calls returns a copy of the invocation counters.
func (m *MemoryStore) Calls() MemoryCalls {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
