package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/streakd/internal/command"
	"git.home.luguber.info/inful/streakd/internal/config"
	"git.home.luguber.info/inful/streakd/internal/journal"
	"git.home.luguber.info/inful/streakd/internal/logfields"
	"git.home.luguber.info/inful/streakd/internal/metrics"
	"git.home.luguber.info/inful/streakd/internal/notify"
	"git.home.luguber.info/inful/streakd/internal/retry"
	"git.home.luguber.info/inful/streakd/internal/rollover"
	"git.home.luguber.info/inful/streakd/internal/storage"
	"git.home.luguber.info/inful/streakd/internal/streak"
)

// Services is the wired core shared by the daemon and one-shot CLI commands:
// one store, one registry, and the engine and façade that use it.
type Services struct {
	Store     storage.Store
	Registry  *streak.Registry
	Engine    *rollover.Engine
	Facade    *command.Facade
	Journal   journal.Store
	Publisher notify.Publisher
	Recorder  metrics.Recorder
	// PromRegistry is nil when metrics are disabled.
	PromRegistry *prom.Registry
}

// ServicesOption adjusts service construction.
type ServicesOption func(*servicesOptions)

type servicesOptions struct {
	clock    clockwork.Clock
	store    storage.Store
	rand     func() float64
	withProm bool
}

// WithServicesClock sets the clock used by the rollover engine.
func WithServicesClock(c clockwork.Clock) ServicesOption {
	return func(o *servicesOptions) { o.clock = c }
}

// WithStore uses an already opened store instead of the configured driver.
func WithStore(s storage.Store) ServicesOption {
	return func(o *servicesOptions) { o.store = s }
}

// WithRand sets the freeze grant draw.
func WithRand(f func() float64) ServicesOption {
	return func(o *servicesOptions) { o.rand = f }
}

// WithPrometheus forces a Prometheus recorder even without a metrics address.
func WithPrometheus() ServicesOption {
	return func(o *servicesOptions) { o.withProm = true }
}

// NewServices opens the configured backends and bootstraps the document.
func NewServices(ctx context.Context, cfg *config.Config, opts ...ServicesOption) (*Services, error) {
	o := servicesOptions{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}

	svc := &Services{Recorder: metrics.NoopRecorder{}, Publisher: notify.NoopPublisher{}}
	if cfg.Metrics.Addr != "" || o.withProm {
		svc.PromRegistry = prom.NewRegistry()
		svc.PromRegistry.MustRegister(promcollect.NewGoCollector(), promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}))
		svc.Recorder = metrics.NewPrometheusRecorder(svc.PromRegistry)
	}

	store := o.store
	if store == nil {
		var err error
		store, err = storage.Open(ctx, storage.Driver(cfg.Store.Driver), cfg.Store.Path)
		if err != nil {
			return nil, err
		}
	}
	svc.Store = store
	slog.Debug("Opened store", logfields.StoreDriver(cfg.Store.Driver), logfields.Path(cfg.Store.Path))

	svc.Registry = streak.NewRegistry(store)
	if _, err := svc.Registry.Bootstrap(ctx, cfg.SeedActivities); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("bootstrap streak document: %w", err)
	}

	if cfg.Journal.Path != "" {
		j, err := journal.NewSQLiteStore(cfg.Journal.Path)
		if err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("open journal: %w", err)
		}
		svc.Journal = j
	}

	pub, err := notify.New(cfg.Notify.NATSURL, cfg.Notify.Subject,
		notify.WithStream(cfg.Notify.Stream),
		notify.WithPublishTimeout(cfg.Notify.PublishTimeout),
		notify.WithRetry(retry.NewPolicy(retry.BackoffExponential, 500*time.Millisecond, 5*time.Second, cfg.Notify.MaxRetries)))
	if err != nil {
		// Notifications are optional; the rollover must still run.
		slog.Warn("NATS unavailable, rollover outcomes will not be published", logfields.Error(err))
	} else {
		svc.Publisher = pub
	}

	engineOpts := []rollover.Option{
		rollover.WithClock(o.clock),
		rollover.WithMinGap(cfg.Rollover.MinGap),
		rollover.WithPublisher(svc.Publisher),
		rollover.WithRecorder(svc.Recorder),
	}
	if svc.Journal != nil {
		engineOpts = append(engineOpts, rollover.WithJournal(svc.Journal))
	}
	if o.rand != nil {
		engineOpts = append(engineOpts, rollover.WithRand(o.rand))
	}
	svc.Engine = rollover.NewEngine(svc.Registry, cfg.Policy(), engineOpts...)
	svc.Facade = command.NewFacade(svc.Registry,
		command.WithRecorder(svc.Recorder),
		command.WithChannel(cfg.Commands.ChannelID))

	return svc, nil
}

// Close releases the publisher, journal and store.
func (s *Services) Close() error {
	var errs []error
	if s.Publisher != nil {
		if err := s.Publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	if s.Journal != nil {
		if err := s.Journal.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close journal: %w", err))
		}
	}
	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}
