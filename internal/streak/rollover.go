package streak

import "time"

// Policy holds the tunable parts of the rollover.
type Policy struct {
	// FreezeGrantProbability is the chance in [0,1] of earning a freeze credit
	// on a perfect day.
	FreezeGrantProbability float64
	// ResetAimOnMiss sends the aim of a penalized activity back to 1.
	ResetAimOnMiss bool
}

// Outcome describes one rollover for notification rendering.
type Outcome struct {
	RunID           string    `json:"runId"`
	At              time.Time `json:"at"`
	Trigger         string    `json:"trigger"`
	CompletedCount  int       `json:"completedCount"`
	RequiredCount   int       `json:"requiredCount"`
	Deficit         int       `json:"deficit"`
	FreezeConsumed  int       `json:"freezeConsumed"`
	ResetActivities []string  `json:"resetActivities"`
	Escalated       bool      `json:"escalated"`
	FreezeGranted   bool      `json:"freezeGranted"`
	FreezeCredits   int       `json:"freezeCredits"`
	Skipped         bool      `json:"skipped,omitempty"`
}

// Kind summarizes which branch the rollover took.
func (o Outcome) Kind() string {
	switch {
	case o.Skipped:
		return "skipped"
	case o.Escalated:
		return "escalated"
	case o.FreezeConsumed > 0:
		return "frozen"
	default:
		return "reset"
	}
}

// Rollover applies the daily transition to s in place. roll returns a value
// in [0,1) used for the freeze grant draw.
func Rollover(s *StreakSet, p Policy, roll func() float64) Outcome {
	out := Outcome{
		CompletedCount:  s.CompletedCount(),
		RequiredCount:   s.MasterCount,
		ResetActivities: []string{},
	}

	if out.CompletedCount == out.RequiredCount {
		out.Escalated = true
		for i := range s.Activities {
			s.Activities[i].Aim++
		}
		if roll() < p.FreezeGrantProbability {
			s.FreezeCredits++
			out.FreezeGranted = true
		}
	} else {
		out.Deficit = out.RequiredCount - out.CompletedCount
		if s.FreezeCredits >= out.Deficit {
			s.FreezeCredits -= out.Deficit
			out.FreezeConsumed = out.Deficit
		} else {
			for i := range s.Activities {
				a := &s.Activities[i]
				if a.Complete() {
					continue
				}
				if p.ResetAimOnMiss {
					a.Aim = 1
				}
				out.ResetActivities = append(out.ResetActivities, a.Name)
			}
		}
	}

	// A new period always starts counting from zero.
	for i := range s.Activities {
		s.Activities[i].DailyProgress = 0
	}
	out.FreezeCredits = s.FreezeCredits
	return out
}
