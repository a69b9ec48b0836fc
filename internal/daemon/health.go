package daemon

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/streakd/internal/journal"
	"git.home.luguber.info/inful/streakd/internal/logfields"
	"git.home.luguber.info/inful/streakd/internal/streak"
	"git.home.luguber.info/inful/streakd/internal/version"
)

// HealthStatus represents the overall health of the daemon
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheck represents a single health check
type HealthCheck struct {
	Name     string        `json:"name"`
	Status   HealthStatus  `json:"status"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration"`
}

// HealthResponse represents the complete health check response
type HealthResponse struct {
	Status    HealthStatus  `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Version   string        `json:"version"`
	Checks    []HealthCheck `json:"checks"`
}

// StatusResponse is served on /status. RecentRollovers comes from the
// journal and is empty without one.
type StatusResponse struct {
	Status          Status            `json:"status"`
	Version         string            `json:"version"`
	StartTime       time.Time         `json:"start_time"`
	Uptime          string            `json:"uptime"`
	SchedulerState  string            `json:"scheduler_state"`
	NextRollover    time.Time         `json:"next_rollover,omitzero"`
	LastOutcome     any               `json:"last_outcome,omitempty"`
	RecentRollovers []*streak.Outcome `json:"recent_rollovers,omitempty"`
}

// recentWindow is how far back /status reads the journal.
const recentWindow = 7 * 24 * time.Hour

// Health checks that the daemon is running and the store is readable.
func (d *Daemon) Health(ctx context.Context) HealthResponse {
	resp := HealthResponse{
		Status:    HealthStatusHealthy,
		Timestamp: d.clock.Now(),
		Version:   version.Version,
	}

	daemonCheck := HealthCheck{Name: "daemon", Status: HealthStatusHealthy}
	if st := d.GetStatus(); st != StatusRunning {
		daemonCheck.Status = HealthStatusUnhealthy
		daemonCheck.Message = "daemon is " + string(st)
	}

	start := d.clock.Now()
	storeCheck := HealthCheck{Name: "store", Status: HealthStatusHealthy}
	if _, err := d.services.Registry.FreezeBalance(ctx); err != nil {
		storeCheck.Status = HealthStatusUnhealthy
		storeCheck.Message = err.Error()
	}
	storeCheck.Duration = d.clock.Since(start)

	resp.Checks = []HealthCheck{daemonCheck, storeCheck}
	for _, c := range resp.Checks {
		if c.Status != HealthStatusHealthy {
			resp.Status = HealthStatusUnhealthy
		}
	}
	return resp
}

// StatusInfo summarizes daemon and scheduler state and the rollovers
// journaled during the last week.
func (d *Daemon) StatusInfo(ctx context.Context) StatusResponse {
	resp := StatusResponse{
		Status:    d.GetStatus(),
		Version:   version.Version,
		StartTime: d.startTime,
	}
	if !d.startTime.IsZero() {
		resp.Uptime = d.clock.Since(d.startTime).Round(time.Second).String()
	}
	if d.scheduler != nil {
		resp.SchedulerState = d.scheduler.State().String()
		resp.NextRollover = d.scheduler.NextRun()
	}
	if out := d.lastOutcome.Load(); out != nil {
		resp.LastOutcome = out
	}
	if j := d.services.Journal; j != nil {
		now := d.clock.Now()
		entries, err := j.GetRange(ctx, now.Add(-recentWindow), now)
		if err == nil {
			resp.RecentRollovers, err = journal.Outcomes(entries)
		}
		if err != nil {
			slog.Warn("Failed to read rollover journal", logfields.Error(err))
		}
	}
	return resp
}
