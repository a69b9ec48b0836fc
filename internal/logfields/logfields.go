package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID       = "run_id"
	KeyTrigger     = "trigger"
	KeyActivity    = "activity"
	KeyCommand     = "command"
	KeyResult      = "result"
	KeyStoreDriver = "store_driver"
	KeyPath        = "path"
	KeySubject     = "subject"
	KeyNextFire    = "next_fire"
	KeyDurationMS  = "duration_ms"
	KeyFreeze      = "freeze_credits"
	KeyDeficit     = "deficit"
	KeyError       = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr         { return slog.String(KeyRunID, id) }
func Trigger(t string) slog.Attr        { return slog.String(KeyTrigger, t) }
func Activity(name string) slog.Attr    { return slog.String(KeyActivity, name) }
func Command(name string) slog.Attr     { return slog.String(KeyCommand, name) }
func Result(r string) slog.Attr         { return slog.String(KeyResult, r) }
func StoreDriver(d string) slog.Attr    { return slog.String(KeyStoreDriver, d) }
func Path(p string) slog.Attr           { return slog.String(KeyPath, p) }
func Subject(s string) slog.Attr        { return slog.String(KeySubject, s) }
func NextFire(t time.Time) slog.Attr    { return slog.Time(KeyNextFire, t) }
func DurationMS(ms float64) slog.Attr   { return slog.Float64(KeyDurationMS, ms) }
func FreezeCredits(n int) slog.Attr     { return slog.Int(KeyFreeze, n) }
func Deficit(n int) slog.Attr           { return slog.Int(KeyDeficit, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
