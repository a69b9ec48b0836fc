package journal

import (
	"encoding/json"
	"fmt"
	"strconv"

	"git.home.luguber.info/inful/streakd/internal/streak"
)

// Entry type names.
const (
	TypeRolloverCompleted = "RolloverCompleted"
	TypeRolloverSkipped   = "RolloverSkipped"
	TypeRolloverFailed    = "RolloverFailed"
)

// NewRolloverEntry records a completed or skipped rollover.
func NewRolloverEntry(out *streak.Outcome) (*BaseEntry, error) {
	payload, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshal rollover outcome %s: %w", out.RunID, err)
	}
	entryType := TypeRolloverCompleted
	if out.Skipped {
		entryType = TypeRolloverSkipped
	}
	return &BaseEntry{
		EntryRunID:     out.RunID,
		EntryType:      entryType,
		EntryTimestamp: out.At,
		EntryPayload:   payload,
		EntryMetadata: map[string]string{
			"trigger": out.Trigger,
			"kind":    out.Kind(),
			"freeze":  strconv.Itoa(out.FreezeCredits),
		},
	}, nil
}

// NewRolloverFailedEntry records a rollover that could not be applied.
func NewRolloverFailedEntry(out *streak.Outcome, cause error) (*BaseEntry, error) {
	payload, err := json.Marshal(map[string]string{"error": cause.Error()})
	if err != nil {
		return nil, fmt.Errorf("marshal rollover failure %s: %w", out.RunID, err)
	}
	return &BaseEntry{
		EntryRunID:     out.RunID,
		EntryType:      TypeRolloverFailed,
		EntryTimestamp: out.At,
		EntryPayload:   payload,
		EntryMetadata:  map[string]string{"trigger": out.Trigger},
	}, nil
}

// DecodeOutcome restores the outcome stored in a completed or skipped entry.
func DecodeOutcome(e Entry) (*streak.Outcome, error) {
	if e.Type() == TypeRolloverFailed {
		return nil, fmt.Errorf("entry %d records a failure, not an outcome", e.ID())
	}
	var out streak.Outcome
	if err := json.Unmarshal(e.Payload(), &out); err != nil {
		return nil, fmt.Errorf("unmarshal outcome: %w", err)
	}
	return &out, nil
}

// Outcomes decodes the completed and skipped rollovers among entries.
// Failure entries carry no outcome and are left out.
func Outcomes(entries []Entry) ([]*streak.Outcome, error) {
	outs := make([]*streak.Outcome, 0, len(entries))
	for _, e := range entries {
		if e.Type() == TypeRolloverFailed {
			continue
		}
		out, err := DecodeOutcome(e)
		if err != nil {
			return nil, err
		}
		outs = append(outs, out)
	}
	return outs, nil
}
