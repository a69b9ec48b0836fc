// Package daemon runs the rollover scheduler, the config watcher and the
// admin HTTP server around the core services.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/streakd/internal/config"
	"git.home.luguber.info/inful/streakd/internal/logfields"
	"git.home.luguber.info/inful/streakd/internal/rollover"
	"git.home.luguber.info/inful/streakd/internal/streak"
)

// Status represents the current state of the daemon
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusError    Status = "error"
)

// Daemon represents the main daemon service
type Daemon struct {
	mu             sync.RWMutex
	config         *config.Config
	configFilePath string
	clock          clockwork.Clock
	status         atomic.Value // Status
	startTime      time.Time

	services      *Services
	scheduler     *Scheduler
	configWatcher *ConfigWatcher
	httpServer    *HTTPServer

	lastOutcome atomic.Pointer[streak.Outcome]
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithClock replaces the wall clock used by the scheduler.
func WithClock(c clockwork.Clock) Option { return func(d *Daemon) { d.clock = c } }

// NewDaemon creates a daemon around already constructed services. When
// configFilePath is set the file is watched for changes.
func NewDaemon(cfg *config.Config, configFilePath string, svc *Services, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if svc == nil {
		return nil, fmt.Errorf("services are required")
	}

	d := &Daemon{
		config:         cfg,
		configFilePath: configFilePath,
		clock:          clockwork.NewRealClock(),
		services:       svc,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.status.Store(StatusStopped)

	sched, err := NewScheduler(d.clock, cfg.Location())
	if err != nil {
		return nil, err
	}
	d.scheduler = sched

	if configFilePath != "" {
		d.configWatcher, err = NewConfigWatcher(configFilePath, d)
		if err != nil {
			return nil, fmt.Errorf("failed to create config watcher: %w", err)
		}
	}

	if cfg.Metrics.Addr != "" {
		d.httpServer = NewHTTPServer(cfg.Metrics.Addr, d)
	}

	return d, nil
}

// Start starts all components and blocks until ctx is done, then stops.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	if st := d.GetStatus(); st != StatusStopped {
		d.mu.Unlock()
		return fmt.Errorf("daemon is not in stopped state: %s", st)
	}
	d.status.Store(StatusStarting)
	d.startTime = d.clock.Now()

	if d.httpServer != nil {
		if err := d.httpServer.Start(ctx); err != nil {
			d.status.Store(StatusError)
			d.mu.Unlock()
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
	}

	next, err := d.scheduler.ScheduleDaily(ctx, d.config.TimeOfDay(), d.config.Location(), d.scheduledRollover)
	if err != nil {
		d.status.Store(StatusError)
		d.mu.Unlock()
		return err
	}
	d.scheduler.Start()

	if d.configWatcher != nil {
		if err := d.configWatcher.Start(ctx); err != nil {
			slog.Error("Failed to start config watcher", logfields.Error(err))
		}
	}

	d.status.Store(StatusRunning)
	slog.Info("streakd daemon started",
		logfields.StoreDriver(d.config.Store.Driver),
		logfields.NextFire(next),
		slog.String("metrics_addr", d.config.Metrics.Addr))
	d.mu.Unlock()

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return d.Stop(stopCtx)
}

// Stop gracefully shuts down the daemon
func (d *Daemon) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if st := d.GetStatus(); st == StatusStopped || st == StatusStopping {
		return nil
	}
	d.status.Store(StatusStopping)
	slog.Info("Stopping streakd daemon")

	if d.configWatcher != nil {
		if err := d.configWatcher.Stop(); err != nil {
			slog.Error("Failed to stop config watcher", logfields.Error(err))
		}
	}
	if err := d.scheduler.Stop(); err != nil {
		slog.Error("Failed to stop scheduler", logfields.Error(err))
	}
	if d.httpServer != nil {
		if err := d.httpServer.Stop(ctx); err != nil {
			slog.Error("Failed to stop HTTP server", logfields.Error(err))
		}
	}

	d.status.Store(StatusStopped)
	slog.Info("streakd daemon stopped", slog.Duration("uptime", d.clock.Since(d.startTime)))
	return nil
}

// GetStatus returns the current daemon status
func (d *Daemon) GetStatus() Status {
	status, ok := d.status.Load().(Status)
	if !ok {
		return StatusError
	}
	return status
}

// GetConfig returns the active configuration.
func (d *Daemon) GetConfig() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config
}

// RunRollover runs one rollover and remembers its outcome for /status.
func (d *Daemon) RunRollover(ctx context.Context, trigger rollover.Trigger) (*streak.Outcome, error) {
	out, err := d.services.Engine.Run(ctx, trigger)
	if err != nil {
		return nil, err
	}
	d.lastOutcome.Store(out)
	return out, nil
}

func (d *Daemon) scheduledRollover(ctx context.Context) error {
	_, err := d.RunRollover(ctx, rollover.TriggerScheduled)
	return err
}

// ReloadConfig applies policy and schedule changes. Store, journal, notify
// and metrics settings are read once at startup.
func (d *Daemon) ReloadConfig(ctx context.Context, cfg *config.Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	old := d.config
	d.services.Engine.SetPolicy(cfg.Policy(), cfg.Rollover.MinGap)

	if old.Rollover.Time != cfg.Rollover.Time || old.Rollover.Timezone != cfg.Rollover.Timezone {
		if _, err := d.scheduler.Reschedule(ctx, cfg.TimeOfDay(), cfg.Location()); err != nil {
			return fmt.Errorf("reschedule rollover: %w", err)
		}
	}
	if old.Store != cfg.Store || old.Journal != cfg.Journal || old.Notify != cfg.Notify || old.Metrics != cfg.Metrics {
		slog.Warn("Storage, journal, notify or metrics changes require a restart to take effect")
	}

	d.config = cfg
	return nil
}
