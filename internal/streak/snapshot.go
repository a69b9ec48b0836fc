package streak

import "time"

// ActivityView is the read-only rendering of one activity.
type ActivityView struct {
	Name          string `json:"name"`
	DailyProgress int    `json:"dailyProgress"`
	Aim           int    `json:"aim"`
	Complete      bool   `json:"complete"`
}

// Snapshot is a read-only view of a StreakSet for summary and left reports.
type Snapshot struct {
	Activities     []ActivityView `json:"activities"`
	MasterCount    int            `json:"masterCount"`
	CompletedCount int            `json:"completedCount"`
	FreezeCredits  int            `json:"freezeCredits"`
	LastRollover   time.Time      `json:"lastRollover,omitzero"`
}

// Snapshot builds a detached view of the set.
func (s *StreakSet) Snapshot() Snapshot {
	views := make([]ActivityView, 0, len(s.Activities))
	for _, a := range s.Activities {
		views = append(views, ActivityView{
			Name:          a.Name,
			DailyProgress: a.DailyProgress,
			Aim:           a.Aim,
			Complete:      a.Complete(),
		})
	}
	return Snapshot{
		Activities:     views,
		MasterCount:    s.MasterCount,
		CompletedCount: s.CompletedCount(),
		FreezeCredits:  s.FreezeCredits,
		LastRollover:   s.LastRollover,
	}
}

// Incomplete lists the names of activities not yet complete, in insertion order.
func (s Snapshot) Incomplete() []string {
	var names []string
	for _, a := range s.Activities {
		if !a.Complete {
			names = append(names, a.Name)
		}
	}
	return names
}

// AllComplete reports a perfect day so far (vacuously true with no activities).
func (s Snapshot) AllComplete() bool { return s.CompletedCount == s.MasterCount }
