package streak

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	serrors "git.home.luguber.info/inful/streakd/internal/errors"
	"git.home.luguber.info/inful/streakd/internal/logfields"
)

// Store persists the StreakSet document. Implementations report failures as
// storage errors and a missing document as serrors.ErrDocumentMissing.
type Store interface {
	Load(ctx context.Context) (*StreakSet, error)
	Save(ctx context.Context, s *StreakSet) error
}

// Locker is implemented by stores that several processes can open at once.
// The returned unlock func releases the lock taken for one load-mutate-save.
type Locker interface {
	Lock(ctx context.Context) (unlock func() error, err error)
}

// Registry is the single writer of the StreakSet. Every operation runs
// load -> mutate -> save under one mutex so that commands and the scheduled
// rollover never overwrite each other. When the store is a Locker the store
// lock is held as well, which extends that guarantee to other processes.
type Registry struct {
	mu    sync.Mutex
	store Store
}

// NewRegistry creates a registry backed by store.
func NewRegistry(store Store) *Registry {
	return &Registry{store: store}
}

// Bootstrap creates the document on first run, seeded with the given names.
// An existing document is left untouched.
func (r *Registry) Bootstrap(ctx context.Context, seed []string) (bool, error) {
	unlock, err := r.lock(ctx)
	if err != nil {
		return false, err
	}
	defer unlock()

	_, err = r.store.Load(ctx)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, serrors.ErrDocumentMissing) {
		return false, err
	}
	s, err := NewStreakSet(seed...)
	if err != nil {
		return false, err
	}
	if err := r.store.Save(ctx, s); err != nil {
		return false, err
	}
	slog.Info("Created streak document", slog.Int("activities", len(s.Activities)))
	return true, nil
}

// Update runs fn against the current set inside the registry transaction and
// saves the result when fn succeeds. Invariants are checked before saving.
func (r *Registry) Update(ctx context.Context, fn func(*StreakSet) error) error {
	unlock, err := r.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	return r.updateLocked(ctx, fn)
}

// lock takes the registry mutex and, for a Locker store, the store lock.
func (r *Registry) lock(ctx context.Context) (func(), error) {
	r.mu.Lock()
	l, ok := r.store.(Locker)
	if !ok {
		return r.mu.Unlock, nil
	}
	release, err := l.Lock(ctx)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	return func() {
		if err := release(); err != nil {
			slog.Warn("Failed to release store lock", logfields.Error(err))
		}
		r.mu.Unlock()
	}, nil
}

func (r *Registry) updateLocked(ctx context.Context, fn func(*StreakSet) error) error {
	s, err := r.store.Load(ctx)
	if err != nil {
		return err
	}
	if err := fn(s); err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return serrors.InternalError("mutation broke streak invariants", err)
	}
	return r.store.Save(ctx, s)
}

// AddActivity inserts a new activity with aim 1.
func (r *Registry) AddActivity(ctx context.Context, name string) error {
	err := r.Update(ctx, func(s *StreakSet) error { return s.Add(name) })
	if err == nil {
		slog.Info("Activity added", logfields.Activity(NormalizeName(name)))
	}
	return err
}

// RemoveActivity deletes an activity.
func (r *Registry) RemoveActivity(ctx context.Context, name string) error {
	err := r.Update(ctx, func(s *StreakSet) error { return s.Remove(name) })
	if err == nil {
		slog.Info("Activity removed", logfields.Activity(NormalizeName(name)))
	}
	return err
}

// RecordProgress counts one completion. AlreadyComplete is not an error and
// leaves the persisted document untouched.
func (r *Registry) RecordProgress(ctx context.Context, name string) (ProgressResult, error) {
	unlock, err := r.lock(ctx)
	if err != nil {
		return ProgressResult{}, err
	}
	defer unlock()

	s, err := r.store.Load(ctx)
	if err != nil {
		return ProgressResult{}, err
	}
	res, err := s.RecordProgress(name)
	if err != nil || res.Status == ProgressAlreadyComplete {
		return res, err
	}
	if err := r.store.Save(ctx, s); err != nil {
		return ProgressResult{}, err
	}
	slog.Debug("Progress recorded",
		logfields.Activity(res.Activity.Name),
		slog.Int("progress", res.Activity.DailyProgress),
		slog.Int("aim", res.Activity.Aim))
	return res, nil
}

// FreezeBalance returns the current freeze credits.
func (r *Registry) FreezeBalance(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.store.Load(ctx)
	if err != nil {
		return 0, err
	}
	return s.FreezeCredits, nil
}

// Snapshot returns a read-only view of the current set.
func (r *Registry) Snapshot(ctx context.Context) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.store.Load(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return s.Snapshot(), nil
}
