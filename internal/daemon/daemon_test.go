package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/streakd/internal/config"
	"git.home.luguber.info/inful/streakd/internal/rollover"
	"git.home.luguber.info/inful/streakd/internal/streak"
)

func memoryConfig() *config.Config {
	cfg := config.Default()
	cfg.Store = config.StoreConfig{Driver: "memory"}
	cfg.SeedActivities = []string{"read", "run"}
	return cfg
}

func newTestDaemon(t *testing.T, cfg *config.Config) *Daemon {
	t.Helper()
	svc, err := NewServices(context.Background(), cfg, WithPrometheus(), WithRand(func() float64 { return 0.99 }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	d, err := NewDaemon(cfg, "", svc, WithClock(clockwork.NewFakeClockAt(time.Now())))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.scheduler.Stop() })
	return d
}

func TestNewServicesBootstrapsAndJournals(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(dir, "streaks.json")
	cfg.Journal.Path = filepath.Join(dir, "journal.db")
	cfg.SeedActivities = []string{"read"}

	ctx := context.Background()
	svc, err := NewServices(ctx, cfg)
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	_, err = os.Stat(cfg.Store.Path)
	require.NoError(t, err, "bootstrap writes the document")

	snap, err := svc.Registry.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Activities, 1)

	out, err := svc.Engine.Run(ctx, rollover.TriggerManual)
	require.NoError(t, err)
	entries, err := svc.Journal.GetRange(ctx, out.At.Add(-time.Minute), out.At.Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAdminEndpoints(t *testing.T) {
	d := newTestDaemon(t, memoryConfig())
	d.status.Store(StatusRunning)
	h := NewHTTPServer("127.0.0.1:0", d).Handler()

	do := func(method, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		return rec
	}

	rec := do(http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, HealthStatusHealthy, health.Status)

	rec = do(http.MethodGet, "/snapshot")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap streak.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 2, snap.MasterCount)

	rec = do(http.MethodPost, "/rollover")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out streak.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, []string{"read", "run"}, out.ResetActivities)
	assert.Equal(t, "manual", out.Trigger)

	rec = do(http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"last_outcome"`)
	assert.Contains(t, rec.Body.String(), `"scheduler_state":"idle"`)

	rec = do(http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `streakd_rollover_outcomes_total{kind="reset"} 1`)

	rec = do(http.MethodGet, "/rollover")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStatusListsJournaledRollovers(t *testing.T) {
	cfg := memoryConfig()
	cfg.Journal.Path = filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	svc, err := NewServices(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	clock := clockwork.NewFakeClockAt(time.Now())
	d, err := NewDaemon(cfg, "", svc, WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.scheduler.Stop() })

	first, err := d.RunRollover(ctx, rollover.TriggerManual)
	require.NoError(t, err)
	second, err := d.RunRollover(ctx, rollover.TriggerManual)
	require.NoError(t, err)
	clock.Advance(time.Minute)

	status := d.StatusInfo(ctx)
	require.Len(t, status.RecentRollovers, 2)
	assert.Equal(t, first.RunID, status.RecentRollovers[0].RunID)
	assert.Equal(t, second.RunID, status.RecentRollovers[1].RunID)

	clock.Advance(8 * 24 * time.Hour)
	assert.Empty(t, d.StatusInfo(ctx).RecentRollovers, "entries older than a week are not listed")
}

func TestHealthReportsStoppedDaemon(t *testing.T) {
	d := newTestDaemon(t, memoryConfig())
	h := NewHTTPServer("127.0.0.1:0", d).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "daemon is stopped")
}

func TestReloadConfig(t *testing.T) {
	cfg := memoryConfig()
	d := newTestDaemon(t, cfg)
	ctx := context.Background()
	_, err := d.scheduler.ScheduleDaily(ctx, cfg.TimeOfDay(), cfg.Location(), d.scheduledRollover)
	require.NoError(t, err)

	updated := memoryConfig()
	updated.Rollover.Time = "06:15"
	updated.Rollover.FreezeGrantProbability = 0.9
	updated.Rollover.MinGap = time.Hour
	require.NoError(t, d.ReloadConfig(ctx, updated))

	p, gap := d.services.Engine.Policy()
	assert.Equal(t, 0.9, p.FreezeGrantProbability)
	assert.Equal(t, time.Hour, gap)
	next := d.scheduler.NextRun()
	assert.Equal(t, 6, next.Hour())
	assert.Equal(t, 15, next.Minute())
	assert.Same(t, updated, d.GetConfig())
}

type recordingReloader struct{ got chan *config.Config }

func (r *recordingReloader) ReloadConfig(_ context.Context, cfg *config.Config) error {
	r.got <- cfg
	return nil
}

func TestConfigWatcherReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streakd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  driver: memory\n"), 0o600))

	target := &recordingReloader{got: make(chan *config.Config, 4)}
	cw, err := NewConfigWatcher(path, target)
	require.NoError(t, err)
	cw.debounceTime = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, cw.Start(ctx))
	defer func() { _ = cw.Stop() }()

	require.NoError(t, os.WriteFile(path, []byte("store:\n  driver: memory\nrollover:\n  time: \"07:45\"\n"), 0o600))

	select {
	case cfg := <-target.got:
		assert.Equal(t, "07:45", cfg.Rollover.Time)
	case <-time.After(5 * time.Second):
		t.Fatal("config change was not picked up")
	}
}

func TestConfigWatcherRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streakd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rollover:\n  time: \"99:99\"\n"), 0o600))

	target := &recordingReloader{got: make(chan *config.Config, 1)}
	cw, err := NewConfigWatcher(path, target)
	require.NoError(t, err)
	defer func() { _ = cw.Stop() }()

	err = cw.performReload(context.Background())
	require.Error(t, err)
	assert.Empty(t, target.got)
}

func TestDaemonStartStop(t *testing.T) {
	cfg := memoryConfig()
	cfg.Metrics.Addr = "127.0.0.1:0"
	svc, err := NewServices(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	d, err := NewDaemon(cfg, "", svc)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Start(ctx) }()

	require.Eventually(t, func() bool { return d.GetStatus() == StatusRunning }, 5*time.Second, 10*time.Millisecond)
	assert.True(t, d.scheduler.NextRun().After(time.Now()))

	resp, err := http.Get("http://" + d.httpServer.Addr() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	err = d.Start(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not in stopped state"))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("daemon did not stop")
	}
	assert.Equal(t, StatusStopped, d.GetStatus())
}
