package metrics

import "time"

// ResultLabel enumerates command result categories for counters.
type ResultLabel string

const (
	ResultOK       ResultLabel = "ok"
	ResultRejected ResultLabel = "rejected"
	ResultError    ResultLabel = "error"
)

// Recorder defines observability hooks for rollovers and commands.
type Recorder interface {
	ObserveRolloverDuration(d time.Duration)
	IncRolloverOutcome(kind string) // escalated|frozen|reset|skipped|failed
	IncCommand(command string, result ResultLabel)
	SetFreezeCredits(n int)
	SetActivities(total, completed int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveRolloverDuration(time.Duration) {}
func (NoopRecorder) IncRolloverOutcome(string)             {}
func (NoopRecorder) IncCommand(string, ResultLabel)        {}
func (NoopRecorder) SetFreezeCredits(int)                  {}
func (NoopRecorder) SetActivities(int, int)                {}
