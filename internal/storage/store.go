// Package storage provides the persistent stores for the streak document.
package storage

import (
	"context"
	"fmt"
	"io"

	"git.home.luguber.info/inful/streakd/internal/streak"
)

// Driver names a storage backend.
type Driver string

const (
	DriverJSON   Driver = "json"
	DriverSQLite Driver = "sqlite"
	DriverMemory Driver = "memory"
)

// Store is a streak.Store that owns closable resources.
type Store interface {
	streak.Store
	io.Closer
}

// Open constructs the store for driver at path.
func Open(ctx context.Context, driver Driver, path string) (Store, error) {
	switch driver {
	case DriverJSON, "":
		return NewFSStore(path)
	case DriverSQLite:
		return NewSQLiteStore(ctx, path)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
