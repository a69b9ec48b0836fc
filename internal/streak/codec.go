package streak

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	serrors "git.home.luguber.info/inful/streakd/internal/errors"
)

// SchemaVersion is the canonical document version written by Marshal.
const SchemaVersion = 2

type document struct {
	Version       int        `json:"version"`
	Activities    []Activity `json:"activities"`
	MasterCount   int        `json:"masterCount"`
	FreezeCredits int        `json:"freezeCredits"`
	LastRollover  *time.Time `json:"lastRollover,omitempty"`
}

// Marshal encodes a set in the canonical schema.
func Marshal(s *StreakSet) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, serrors.MalformedDocument("refusing to encode invalid set", err)
	}
	doc := document{
		Version:       SchemaVersion,
		Activities:    s.Activities,
		MasterCount:   s.MasterCount,
		FreezeCredits: s.FreezeCredits,
	}
	if doc.Activities == nil {
		doc.Activities = []Activity{}
	}
	if !s.LastRollover.IsZero() {
		t := s.LastRollover.UTC()
		doc.LastRollover = &t
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, serrors.MalformedDocument("encode", err)
	}
	return data, nil
}

// Unmarshal decodes a canonical document or migrates a legacy one. Shapes
// that match no known revision fail with a storage error.
func Unmarshal(data []byte) (*StreakSet, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, serrors.MalformedDocument("not a JSON object", err)
	}
	if _, ok := fields["version"]; ok {
		return decodeCanonical(data)
	}
	return migrateLegacy(fields)
}

func decodeCanonical(data []byte) (*StreakSet, error) {
	var doc document
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, serrors.MalformedDocument("canonical decode", err)
	}
	if doc.Version != SchemaVersion {
		return nil, serrors.MalformedDocument(fmt.Sprintf("unsupported schema version %d", doc.Version), nil)
	}
	if doc.Activities == nil {
		return nil, serrors.MalformedDocument("missing activities", nil)
	}
	s := &StreakSet{
		Activities:    doc.Activities,
		MasterCount:   doc.MasterCount,
		FreezeCredits: doc.FreezeCredits,
	}
	if doc.LastRollover != nil {
		s.LastRollover = doc.LastRollover.UTC()
	}
	if err := s.Validate(); err != nil {
		return nil, serrors.MalformedDocument("invariant violation", err)
	}
	return s, nil
}

// Key spellings seen across historical revisions of the document.
var (
	legacyActivityKeys = []string{"dailyStreaks", "daily-streaks"}
	legacyMasterKeys   = []string{"masterCount", "master-count", "master"}
	legacyFreezeKeys   = []string{"freezeCredits", "freeze-credits", "freezes", "freeze"}
	legacyProgressKeys = []string{"count", "daily", "dailyProgress"}
)

func migrateLegacy(fields map[string]json.RawMessage) (*StreakSet, error) {
	if _, ok := fields["done_count"]; ok {
		return nil, serrors.MalformedDocument("counter-only document has no activities to migrate", nil)
	}

	known := make(map[string]struct{})
	for _, group := range [][]string{legacyActivityKeys, legacyMasterKeys, legacyFreezeKeys} {
		for _, k := range group {
			known[k] = struct{}{}
		}
	}
	var unknown []string
	for k := range fields {
		if _, ok := known[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, serrors.MalformedDocument("unrecognized keys: "+strings.Join(unknown, ", "), nil)
	}

	rawActivities, key, err := pickOne(fields, legacyActivityKeys)
	if err != nil {
		return nil, err
	}
	if rawActivities == nil {
		return nil, serrors.MalformedDocument("no activity collection found", nil)
	}

	activities, err := decodeLegacyActivities(rawActivities)
	if err != nil {
		return nil, err
	}

	s := &StreakSet{Activities: activities}

	rawMaster, _, err := pickOne(fields, legacyMasterKeys)
	if err != nil {
		return nil, err
	}
	if rawMaster != nil {
		if err := json.Unmarshal(rawMaster, &s.MasterCount); err != nil {
			return nil, serrors.MalformedDocument("master count", err)
		}
	}
	if s.MasterCount != len(activities) {
		slog.Warn("Repairing master count during legacy migration",
			slog.Int("stored", s.MasterCount),
			slog.Int("activities", len(activities)))
		s.MasterCount = len(activities)
	}

	rawFreeze, _, err := pickOne(fields, legacyFreezeKeys)
	if err != nil {
		return nil, err
	}
	if rawFreeze != nil {
		if err := json.Unmarshal(rawFreeze, &s.FreezeCredits); err != nil {
			return nil, serrors.MalformedDocument("freeze credits", err)
		}
	}

	if err := s.Validate(); err != nil {
		return nil, serrors.MalformedDocument("legacy document violates invariants", err)
	}
	slog.Info("Migrated legacy streak document",
		slog.String("activity_key", key),
		slog.Int("activities", len(activities)))
	return s, nil
}

// pickOne returns the value under exactly one of the candidate keys.
func pickOne(fields map[string]json.RawMessage, candidates []string) (json.RawMessage, string, error) {
	var (
		found json.RawMessage
		key   string
	)
	for _, k := range candidates {
		if v, ok := fields[k]; ok {
			if found != nil {
				return nil, "", serrors.MalformedDocument(fmt.Sprintf("conflicting keys %q and %q", key, k), nil)
			}
			found, key = v, k
		}
	}
	return found, key, nil
}

// decodeLegacyActivities walks the legacy name->entry object token by token so
// that insertion order survives migration.
func decodeLegacyActivities(raw json.RawMessage) ([]Activity, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, serrors.MalformedDocument("activity collection", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, serrors.MalformedDocument("activity collection must be an object", nil)
	}

	activities := []Activity{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, serrors.MalformedDocument("activity name", err)
		}
		name := NormalizeName(keyTok.(string))

		var fields map[string]json.RawMessage
		if err := dec.Decode(&fields); err != nil {
			return nil, serrors.MalformedDocument(fmt.Sprintf("activity %q", name), err)
		}
		a, err := decodeLegacyEntry(name, fields)
		if err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	if _, err := dec.Token(); err != nil {
		return nil, serrors.MalformedDocument("activity collection", err)
	}
	return activities, nil
}

func decodeLegacyEntry(name string, fields map[string]json.RawMessage) (Activity, error) {
	a := Activity{Name: name}
	rawProgress, _, err := pickOne(fields, legacyProgressKeys)
	if err != nil {
		return a, err
	}
	if rawProgress == nil {
		return a, serrors.MalformedDocument(fmt.Sprintf("activity %q has no progress field", name), nil)
	}
	if err := json.Unmarshal(rawProgress, &a.DailyProgress); err != nil {
		return a, serrors.MalformedDocument(fmt.Sprintf("activity %q progress", name), err)
	}
	rawAim, ok := fields["aim"]
	if !ok {
		return a, serrors.MalformedDocument(fmt.Sprintf("activity %q has no aim", name), nil)
	}
	if err := json.Unmarshal(rawAim, &a.Aim); err != nil {
		return a, serrors.MalformedDocument(fmt.Sprintf("activity %q aim", name), err)
	}
	if len(fields) != 2 {
		return a, serrors.MalformedDocument(fmt.Sprintf("activity %q has unrecognized fields", name), nil)
	}
	return a, nil
}
