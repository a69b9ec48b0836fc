package journal

import "time"

// Entry represents one recorded rollover in the journal.
type Entry interface {
	// ID returns the row identifier.
	ID() int64
	// RunID returns the rollover run identifier.
	RunID() string
	// Type returns the entry type name.
	Type() string
	// Timestamp returns when the rollover ran.
	Timestamp() time.Time
	// Payload returns the entry data as bytes.
	Payload() []byte
	// Metadata returns optional entry metadata.
	Metadata() map[string]string
}

// BaseEntry provides a default implementation of Entry.
type BaseEntry struct {
	EntryID        int64
	EntryRunID     string
	EntryType      string
	EntryTimestamp time.Time
	EntryPayload   []byte
	EntryMetadata  map[string]string
}

func (e *BaseEntry) ID() int64                   { return e.EntryID }
func (e *BaseEntry) RunID() string               { return e.EntryRunID }
func (e *BaseEntry) Type() string                { return e.EntryType }
func (e *BaseEntry) Timestamp() time.Time        { return e.EntryTimestamp }
func (e *BaseEntry) Payload() []byte             { return e.EntryPayload }
func (e *BaseEntry) Metadata() map[string]string { return e.EntryMetadata }
