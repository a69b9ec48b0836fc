package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	serrors "git.home.luguber.info/inful/streakd/internal/errors"
)

func TestSQLiteStoreSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(ctx, ":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer func() { _ = store.Close() }()

	if _, err := store.Load(ctx); !errors.Is(err, serrors.ErrDocumentMissing) {
		t.Fatalf("expected document missing on empty database, got %v", err)
	}

	want := sampleSet()
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertSameSet(t, want, got)

	// Second save replaces the single row.
	got.FreezeCredits = 9
	if err := store.Save(ctx, got); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	again, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if again.FreezeCredits != 9 {
		t.Errorf("freeze credits = %d, want 9", again.FreezeCredits)
	}

	var rows int
	if err := store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM streak_document").Scan(&rows); err != nil {
		t.Fatal(err)
	}
	if rows != 1 {
		t.Errorf("expected exactly one document row, got %d", rows)
	}
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "streaks.db")

	store, err := NewSQLiteStore(ctx, path)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := store.Save(ctx, sampleSet()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	_ = store.Close()

	reopened, err := NewSQLiteStore(ctx, path)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	got, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertSameSet(t, sampleSet(), got)
}

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	cases := []struct {
		driver Driver
		path   string
		check  func(Store) bool
	}{
		{DriverJSON, filepath.Join(dir, "s.json"), func(s Store) bool { _, ok := s.(*FSStore); return ok }},
		{"", filepath.Join(dir, "d.json"), func(s Store) bool { _, ok := s.(*FSStore); return ok }},
		{DriverSQLite, filepath.Join(dir, "s.db"), func(s Store) bool { _, ok := s.(*SQLiteStore); return ok }},
		{DriverMemory, "", func(s Store) bool { _, ok := s.(*MemoryStore); return ok }},
	}
	for _, tc := range cases {
		s, err := Open(ctx, tc.driver, tc.path)
		if err != nil {
			t.Fatalf("Open(%q) failed: %v", tc.driver, err)
		}
		if !tc.check(s) {
			t.Errorf("Open(%q) returned %T", tc.driver, s)
		}
		_ = s.Close()
	}

	if _, err := Open(ctx, "etcd", "x"); err == nil {
		t.Error("expected unknown driver to fail")
	}
}

func TestMemoryStoreCountsCalls(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	if _, err := m.Load(ctx); !errors.Is(err, serrors.ErrDocumentMissing) {
		t.Fatalf("expected document missing, got %v", err)
	}
	if err := m.Save(ctx, sampleSet()); err != nil {
		t.Fatal(err)
	}
	got, err := m.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	got.FreezeCredits = 100
	again, _ := m.Load(ctx)
	if again.FreezeCredits != 3 {
		t.Error("loaded sets must not alias stored state")
	}
	if c := m.Calls(); c.Load != 3 || c.Save != 1 {
		t.Errorf("calls = %+v", c)
	}
}
