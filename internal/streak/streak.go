// Package streak holds the streak data model, the single-writer registry that
// guards its invariants, and the pure daily rollover algorithm.
package streak

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	serrors "git.home.luguber.info/inful/streakd/internal/errors"
)

// Activity is one tracked habit.
type Activity struct {
	Name          string `json:"name"`
	DailyProgress int    `json:"dailyProgress"`
	Aim           int    `json:"aim"`
}

// Complete reports whether today's target has been reached.
func (a Activity) Complete() bool { return a.DailyProgress == a.Aim }

// StreakSet is the aggregate root persisted as one document. Activities keep
// insertion order.
type StreakSet struct {
	Activities    []Activity
	MasterCount   int
	FreezeCredits int
	LastRollover  time.Time
}

// NewStreakSet returns a set containing the given activities with a fresh baseline.
func NewStreakSet(names ...string) (*StreakSet, error) {
	s := &StreakSet{}
	for _, n := range names {
		if err := s.Add(n); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// NormalizeName trims surrounding whitespace and applies Unicode NFC so that
// visually identical names map to the same key.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

func (s *StreakSet) index(name string) int {
	for i := range s.Activities {
		if s.Activities[i].Name == name {
			return i
		}
	}
	return -1
}

// Get returns the activity with the given (normalized) name.
func (s *StreakSet) Get(name string) (Activity, bool) {
	i := s.index(NormalizeName(name))
	if i < 0 {
		return Activity{}, false
	}
	return s.Activities[i], true
}

// Add inserts a new activity with progress 0 and aim 1.
func (s *StreakSet) Add(name string) error {
	name = NormalizeName(name)
	if name == "" {
		return serrors.EmptyName()
	}
	if s.index(name) >= 0 {
		return serrors.DuplicateActivity(name)
	}
	s.Activities = append(s.Activities, Activity{Name: name, Aim: 1})
	s.MasterCount++
	return nil
}

// Remove deletes an activity.
func (s *StreakSet) Remove(name string) error {
	name = NormalizeName(name)
	if name == "" {
		return serrors.EmptyName()
	}
	i := s.index(name)
	if i < 0 {
		return serrors.ActivityNotFound(name)
	}
	s.Activities = append(s.Activities[:i], s.Activities[i+1:]...)
	s.MasterCount--
	return nil
}

// ProgressStatus is the non-error outcome of recording progress.
type ProgressStatus string

const (
	ProgressUpdated         ProgressStatus = "updated"
	ProgressAlreadyComplete ProgressStatus = "already_complete"
)

// ProgressResult describes a RecordProgress call.
type ProgressResult struct {
	Status   ProgressStatus `json:"status"`
	Activity Activity       `json:"activity"`
}

// RecordProgress increments an activity's progress, clamped at its aim.
func (s *StreakSet) RecordProgress(name string) (ProgressResult, error) {
	name = NormalizeName(name)
	if name == "" {
		return ProgressResult{}, serrors.EmptyName()
	}
	i := s.index(name)
	if i < 0 {
		return ProgressResult{}, serrors.ActivityNotFound(name)
	}
	a := &s.Activities[i]
	if a.DailyProgress >= a.Aim {
		return ProgressResult{Status: ProgressAlreadyComplete, Activity: *a}, nil
	}
	a.DailyProgress++
	return ProgressResult{Status: ProgressUpdated, Activity: *a}, nil
}

// CompletedCount is the number of activities whose progress equals their aim.
func (s *StreakSet) CompletedCount() int {
	n := 0
	for _, a := range s.Activities {
		if a.Complete() {
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (s *StreakSet) Clone() *StreakSet {
	c := *s
	c.Activities = append([]Activity(nil), s.Activities...)
	return &c
}

// Validate checks the aggregate invariants.
func (s *StreakSet) Validate() error {
	if s.MasterCount != len(s.Activities) {
		return fmt.Errorf("master count %d does not match %d activities", s.MasterCount, len(s.Activities))
	}
	if s.FreezeCredits < 0 {
		return fmt.Errorf("freeze credits must not be negative: %d", s.FreezeCredits)
	}
	seen := make(map[string]struct{}, len(s.Activities))
	for _, a := range s.Activities {
		if a.Name == "" {
			return fmt.Errorf("activity with empty name")
		}
		if _, dup := seen[a.Name]; dup {
			return fmt.Errorf("duplicate activity %q", a.Name)
		}
		seen[a.Name] = struct{}{}
		if a.Aim < 1 {
			return fmt.Errorf("activity %q: aim must be positive, got %d", a.Name, a.Aim)
		}
		if a.DailyProgress < 0 || a.DailyProgress > a.Aim {
			return fmt.Errorf("activity %q: progress %d outside [0,%d]", a.Name, a.DailyProgress, a.Aim)
		}
	}
	return nil
}
