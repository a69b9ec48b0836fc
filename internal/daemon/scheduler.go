package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/streakd/internal/config"
	"git.home.luguber.info/inful/streakd/internal/logfields"
)

// Period is the fixed interval between rollovers.
const Period = 24 * time.Hour

// SchedulerState is Idle while waiting and Firing while a rollover runs.
type SchedulerState int32

const (
	StateIdle SchedulerState = iota
	StateFiring
)

func (s SchedulerState) String() string {
	if s == StateFiring {
		return "firing"
	}
	return "idle"
}

// RolloverFunc runs one scheduled rollover.
type RolloverFunc func(ctx context.Context) error

// NextFire returns the first occurrence of at in loc strictly after now.
// Occurrences are spaced by a fixed Period, so the result is never more
// than 24h ahead even across a daylight-saving change.
func NextFire(now time.Time, at config.TimeOfDay, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), at.Hour, at.Minute, 0, 0, loc)
	for !next.After(now) {
		next = next.Add(Period)
	}
	// A 25h local day can put today's occurrence more than one period away.
	for next.Sub(now) > Period {
		next = next.Add(-Period)
	}
	return next
}

// Scheduler wraps gocron scheduler for the daily rollover job.
type Scheduler struct {
	scheduler gocron.Scheduler
	clock     clockwork.Clock

	mu    sync.Mutex
	jobID uuid.UUID
	next  time.Time
	run   RolloverFunc

	state atomic.Int32
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(clock clockwork.Clock, loc *time.Location) (*Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithClock(clock), gocron.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{scheduler: s, clock: clock}, nil
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	slog.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop shuts the scheduler down, waiting for a running rollover to finish.
func (s *Scheduler) Stop() error {
	slog.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// State reports whether a rollover is in progress.
func (s *Scheduler) State() SchedulerState { return SchedulerState(s.state.Load()) }

// NextRun returns the next planned fire instant.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// ScheduleDaily registers run to fire at the next occurrence of at and every
// 24h after that. A previously scheduled job is replaced.
func (s *Scheduler) ScheduleDaily(ctx context.Context, at config.TimeOfDay, loc *time.Location, run RolloverFunc) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.jobID != uuid.Nil {
		if err := s.scheduler.RemoveJob(s.jobID); err != nil {
			slog.Warn("Failed to remove previous rollover job", logfields.Error(err))
		}
		s.jobID = uuid.Nil
	}

	next := NextFire(s.clock.Now(), at, loc)
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(Period),
		gocron.NewTask(func() { s.fire(ctx) }),
		gocron.WithName("daily-rollover"),
		gocron.WithStartAt(gocron.WithStartDateTime(next)),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to create rollover job: %w", err)
	}

	s.jobID = job.ID()
	s.next = next
	s.run = run
	slog.Info("Scheduled daily rollover",
		slog.String("at", at.String()),
		slog.String("timezone", loc.String()),
		logfields.NextFire(next))
	return next, nil
}

// Reschedule replaces the job with a new time of day, keeping the rollover func.
func (s *Scheduler) Reschedule(ctx context.Context, at config.TimeOfDay, loc *time.Location) (time.Time, error) {
	s.mu.Lock()
	run := s.run
	s.mu.Unlock()
	if run == nil {
		return time.Time{}, fmt.Errorf("no rollover scheduled")
	}
	return s.ScheduleDaily(ctx, at, loc, run)
}

// fire runs one rollover. Failures are logged and the next attempt waits for
// the following period; nothing is retried.
func (s *Scheduler) fire(ctx context.Context) {
	s.mu.Lock()
	run := s.run
	s.mu.Unlock()
	if run == nil {
		return
	}

	s.state.Store(int32(StateFiring))
	start := s.clock.Now()
	err := run(ctx)

	s.mu.Lock()
	for !s.next.After(start) {
		s.next = s.next.Add(Period)
	}
	next := s.next
	s.mu.Unlock()
	s.state.Store(int32(StateIdle))

	if err != nil {
		slog.Error("Scheduled rollover failed, waiting for next period",
			logfields.Error(err), logfields.NextFire(next))
		return
	}
	slog.Debug("Scheduled rollover finished",
		logfields.DurationMS(float64(s.clock.Since(start).Milliseconds())),
		logfields.NextFire(next))
}
