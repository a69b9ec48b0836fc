package daemon

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/streakd/internal/config"
)

func TestNextFire(t *testing.T) {
	oslo, err := time.LoadLocation("Europe/Oslo")
	require.NoError(t, err)

	tests := []struct {
		name string
		now  time.Time
		at   config.TimeOfDay
		loc  *time.Location
		want time.Time
	}{
		{
			name: "later today",
			now:  time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC),
			at:   config.TimeOfDay{Hour: 21, Minute: 30},
			loc:  time.UTC,
			want: time.Date(2026, 10, 18, 21, 30, 0, 0, time.UTC),
		},
		{
			name: "already passed rolls to tomorrow",
			now:  time.Date(2026, 10, 18, 22, 0, 0, 0, time.UTC),
			at:   config.TimeOfDay{Hour: 21, Minute: 30},
			loc:  time.UTC,
			want: time.Date(2026, 10, 19, 21, 30, 0, 0, time.UTC),
		},
		{
			name: "exactly now is not strictly after",
			now:  time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC),
			at:   config.TimeOfDay{},
			loc:  time.UTC,
			want: time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "timezone applies",
			now:  time.Date(2026, 6, 1, 20, 0, 0, 0, time.UTC), // 22:00 in Oslo
			at:   config.TimeOfDay{Hour: 23, Minute: 0},
			loc:  oslo,
			want: time.Date(2026, 6, 1, 23, 0, 0, 0, oslo),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextFire(tt.now, tt.at, tt.loc)
			assert.True(t, got.Equal(tt.want), "got %v want %v", got, tt.want)
		})
	}
}

func TestNextFireIsStrictlyFutureAndWithinPeriod(t *testing.T) {
	oslo, err := time.LoadLocation("Europe/Oslo")
	require.NoError(t, err)

	// Walk across the autumn DST change in 37 minute steps.
	start := time.Date(2026, 10, 23, 0, 0, 0, 0, time.UTC)
	for now := start; now.Before(start.Add(96 * time.Hour)); now = now.Add(37 * time.Minute) {
		for _, at := range []config.TimeOfDay{{}, {Hour: 2, Minute: 30}, {Hour: 23, Minute: 59}} {
			next := NextFire(now, at, oslo)
			require.True(t, next.After(now), "now=%v at=%v next=%v", now, at, next)
			require.LessOrEqual(t, next.Sub(now), Period, "now=%v at=%v next=%v", now, at, next)
		}
	}
}

func TestSchedulerScheduleDaily(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Now())
	s, err := NewScheduler(clock, time.UTC)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })

	_, err = s.Reschedule(context.Background(), config.TimeOfDay{}, time.UTC)
	require.Error(t, err, "nothing to reschedule yet")

	at := config.TimeOfDay{Hour: 3}
	next, err := s.ScheduleDaily(context.Background(), at, time.UTC, func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.True(t, next.After(clock.Now()))
	assert.Equal(t, next, s.NextRun())
	assert.Equal(t, StateIdle, s.State())

	moved, err := s.Reschedule(context.Background(), config.TimeOfDay{Hour: 4}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 4, moved.Hour())
	assert.Len(t, s.scheduler.Jobs(), 1, "reschedule replaces the job")
}

func TestSchedulerFire(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Now())
	s, err := NewScheduler(clock, time.UTC)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })

	var sawFiring bool
	calls := 0
	run := func(context.Context) error {
		calls++
		sawFiring = s.State() == StateFiring
		if calls == 2 {
			return errors.New("disk full")
		}
		return nil
	}
	next, err := s.ScheduleDaily(context.Background(), config.TimeOfDay{Hour: 12}, time.UTC, run)
	require.NoError(t, err)

	clock.Advance(next.Sub(clock.Now()))
	s.fire(context.Background())
	assert.True(t, sawFiring)
	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, next.Add(Period), s.NextRun())

	// A failed run is not retried; the next attempt is one period later.
	clock.Advance(Period)
	s.fire(context.Background())
	assert.Equal(t, 2, calls)
	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, next.Add(2*Period), s.NextRun())
}

func TestStartedSchedulerFiresDaily(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Now())
	s, err := NewScheduler(clock, time.UTC)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })

	var calls atomic.Int32
	next, err := s.ScheduleDaily(context.Background(), config.TimeOfDay{Hour: 6}, time.UTC, func(context.Context) error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for day := int32(1); day <= 3; day++ {
		// Wait for gocron to arm the job timer before moving time.
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		if day == 1 {
			clock.Advance(next.Sub(clock.Now()))
		} else {
			clock.Advance(Period)
		}
		require.Eventually(t, func() bool { return calls.Load() == day }, 2*time.Second, 5*time.Millisecond,
			"day %d: expected %d rollovers", day, day)
	}

	// Nothing fires between scheduled instants.
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(Period - time.Minute)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSchedulerStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "firing", StateFiring.String())
}
