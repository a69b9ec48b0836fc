package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once             sync.Once
	rolloverDuration prom.Histogram
	rolloverOutcomes *prom.CounterVec
	commandResults   *prom.CounterVec
	freezeCredits    prom.Gauge
	activities       prom.Gauge
	activitiesDone   prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.rolloverDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "streakd",
			Name:      "rollover_duration_seconds",
			Help:      "Duration of the daily rollover transaction",
			Buckets:   prom.DefBuckets,
		})
		pr.rolloverOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "streakd",
			Name:      "rollover_outcomes_total",
			Help:      "Rollovers by branch taken",
		}, []string{"kind"})
		pr.commandResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "streakd",
			Name:      "command_results_total",
			Help:      "Commands by name and result",
		}, []string{"command", "result"})
		pr.freezeCredits = prom.NewGauge(prom.GaugeOpts{
			Namespace: "streakd",
			Name:      "freeze_credits",
			Help:      "Freeze credits after the last rollover",
		})
		pr.activities = prom.NewGauge(prom.GaugeOpts{
			Namespace: "streakd",
			Name:      "activities",
			Help:      "Tracked activities (master count)",
		})
		pr.activitiesDone = prom.NewGauge(prom.GaugeOpts{
			Namespace: "streakd",
			Name:      "activities_completed",
			Help:      "Activities complete at the last rollover",
		})
		reg.MustRegister(pr.rolloverDuration, pr.rolloverOutcomes, pr.commandResults, pr.freezeCredits, pr.activities, pr.activitiesDone)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveRolloverDuration(d time.Duration) {
	if p == nil || p.rolloverDuration == nil {
		return
	}
	p.rolloverDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRolloverOutcome(kind string) {
	if p == nil || p.rolloverOutcomes == nil {
		return
	}
	p.rolloverOutcomes.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) IncCommand(command string, result ResultLabel) {
	if p == nil || p.commandResults == nil {
		return
	}
	p.commandResults.WithLabelValues(command, string(result)).Inc()
}

func (p *PrometheusRecorder) SetFreezeCredits(n int) {
	if p == nil || p.freezeCredits == nil {
		return
	}
	p.freezeCredits.Set(float64(n))
}

func (p *PrometheusRecorder) SetActivities(total, completed int) {
	if p == nil || p.activities == nil {
		return
	}
	p.activities.Set(float64(total))
	p.activitiesDone.Set(float64(completed))
}
