// Package rollover runs the daily rollover transaction against the registry
// and fans the outcome out to the journal, publisher and metrics.
package rollover

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	serrors "git.home.luguber.info/inful/streakd/internal/errors"
	"git.home.luguber.info/inful/streakd/internal/journal"
	"git.home.luguber.info/inful/streakd/internal/logfields"
	"git.home.luguber.info/inful/streakd/internal/metrics"
	"git.home.luguber.info/inful/streakd/internal/notify"
	"git.home.luguber.info/inful/streakd/internal/streak"
)

// Trigger names what started a rollover.
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
)

// errSkip aborts the registry transaction without saving.
var errSkip = errors.New("rollover skipped")

// Engine applies the rollover algorithm under the registry lock.
type Engine struct {
	registry  *streak.Registry
	clock     clockwork.Clock
	roll      func() float64
	journal   journal.Store
	publisher notify.Publisher
	recorder  metrics.Recorder

	mu     sync.RWMutex
	policy streak.Policy
	minGap time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock.
func WithClock(c clockwork.Clock) Option { return func(e *Engine) { e.clock = c } }

// WithRand replaces the freeze grant draw. f must return values in [0,1).
func WithRand(f func() float64) Option { return func(e *Engine) { e.roll = f } }

// WithJournal records every run in j.
func WithJournal(j journal.Store) Option { return func(e *Engine) { e.journal = j } }

// WithPublisher publishes every applied outcome through p.
func WithPublisher(p notify.Publisher) Option { return func(e *Engine) { e.publisher = p } }

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option { return func(e *Engine) { e.recorder = r } }

// WithMinGap sets the shortest interval between two scheduled rollovers.
func WithMinGap(d time.Duration) Option { return func(e *Engine) { e.minGap = d } }

// NewEngine creates an engine over registry using policy.
func NewEngine(registry *streak.Registry, policy streak.Policy, opts ...Option) *Engine {
	e := &Engine{
		registry:  registry,
		clock:     clockwork.NewRealClock(),
		roll:      rand.Float64,
		publisher: notify.NoopPublisher{},
		recorder:  metrics.NoopRecorder{},
		policy:    policy,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetPolicy swaps the policy and gap guard used by subsequent runs.
func (e *Engine) SetPolicy(p streak.Policy, minGap time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.policy = p
	e.minGap = minGap
}

// Policy returns the active policy and gap guard.
func (e *Engine) Policy() (streak.Policy, time.Duration) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.policy, e.minGap
}

// Run performs one rollover. A scheduled trigger arriving within the minimum
// gap of the previous rollover is skipped without touching the document.
// Store failures are returned as rollover errors and never retried.
func (e *Engine) Run(ctx context.Context, trigger Trigger) (*streak.Outcome, error) {
	policy, minGap := e.Policy()
	runID := uuid.NewString()
	start := e.clock.Now()
	log := slog.With(logfields.RunID(runID), logfields.Trigger(string(trigger)))

	var out streak.Outcome
	err := e.registry.Update(ctx, func(s *streak.StreakSet) error {
		now := e.clock.Now()
		if trigger == TriggerScheduled && minGap > 0 && !s.LastRollover.IsZero() && now.Sub(s.LastRollover) < minGap {
			out = streak.Outcome{
				CompletedCount:  s.CompletedCount(),
				RequiredCount:   s.MasterCount,
				ResetActivities: []string{},
				FreezeCredits:   s.FreezeCredits,
				Skipped:         true,
			}
			return errSkip
		}
		out = streak.Rollover(s, policy, e.roll)
		s.LastRollover = now.UTC()
		return nil
	})
	out.RunID = runID
	out.At = start
	out.Trigger = string(trigger)

	switch {
	case errors.Is(err, errSkip):
		log.Info("Rollover skipped, previous run too recent", slog.Duration("min_gap", minGap))
		e.recorder.IncRolloverOutcome(out.Kind())
		e.record(ctx, log, &out, nil)
		return &out, nil
	case err != nil:
		log.Error("Rollover failed", logfields.Error(err))
		e.recorder.IncRolloverOutcome("failed")
		e.record(ctx, log, &out, err)
		return nil, serrors.RolloverFailed(runID, err)
	}

	e.recorder.ObserveRolloverDuration(e.clock.Since(start))
	e.recorder.IncRolloverOutcome(out.Kind())
	e.recorder.SetFreezeCredits(out.FreezeCredits)
	e.recorder.SetActivities(out.RequiredCount, out.CompletedCount)

	log.Info("Rollover applied",
		logfields.Result(out.Kind()),
		slog.Int("completed", out.CompletedCount),
		slog.Int("required", out.RequiredCount),
		logfields.Deficit(out.Deficit),
		logfields.FreezeCredits(out.FreezeCredits),
		slog.Any("reset", out.ResetActivities))

	e.record(ctx, log, &out, nil)
	if err := e.publisher.PublishOutcome(ctx, &out); err != nil {
		log.Warn("Failed to publish rollover outcome", logfields.Error(err))
	}
	return &out, nil
}

// record appends the run to the journal. The document is already committed,
// so failures are only logged.
func (e *Engine) record(ctx context.Context, log *slog.Logger, out *streak.Outcome, cause error) {
	if e.journal == nil {
		return
	}
	var (
		entry *journal.BaseEntry
		err   error
	)
	if cause != nil {
		entry, err = journal.NewRolloverFailedEntry(out, cause)
	} else {
		entry, err = journal.NewRolloverEntry(out)
	}
	if err == nil {
		err = e.journal.Append(ctx, entry)
	}
	if err != nil {
		log.Warn("Failed to journal rollover", logfields.Error(err))
	}
}
