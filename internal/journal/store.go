// Package journal is an append-only audit log of rollover outcomes.
package journal

import (
	"context"
	"time"
)

// Store appends rollover entries and reads them back by time.
type Store interface {
	Append(ctx context.Context, e Entry) error
	// GetRange returns entries with start <= timestamp <= end, oldest first.
	GetRange(ctx context.Context, start, end time.Time) ([]Entry, error)
	Close() error
}
