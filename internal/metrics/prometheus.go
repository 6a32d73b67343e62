package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/matchday-agent/internal/types"
)

// PrometheusSink implements Sink using the Prometheus client library.
// Registration errors are logged but never propagated.
type PrometheusSink struct {
	runsTotal         *prometheus.CounterVec
	eventsProcessed   prometheus.Counter
	successesTotal    prometheus.Counter
	failuresTotal     prometheus.Counter
	notificationsSent prometheus.Counter
	deliveryFailures  prometheus.Counter
	externalCalls     prometheus.Counter
	cacheHits         prometheus.Counter
	stageErrors       *prometheus.CounterVec
	runDuration       prometheus.Histogram
	lastRunTimestamp  prometheus.Gauge

	gatherer prometheus.Gatherer
	logger   *logrus.Logger
}

// NewPrometheusSink creates a sink registered on reg
func NewPrometheusSink(reg *prometheus.Registry, logger *logrus.Logger) *PrometheusSink {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &PrometheusSink{gatherer: reg, logger: logger}

	s.runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "matchday_runs_total",
		Help: "Total number of pipeline runs by final status.",
	}, []string{"status"})
	s.eventsProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "matchday_events_processed_total",
		Help: "Events taken through enrichment.",
	})
	s.successesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "matchday_enrichment_successes_total",
		Help: "Enrichment results persisted.",
	})
	s.failuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "matchday_enrichment_failures_total",
		Help: "Events whose enrichment failed or was skipped.",
	})
	s.notificationsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "matchday_notifications_sent_total",
		Help: "Notifications delivered and marked delivered.",
	})
	s.deliveryFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "matchday_delivery_failures_total",
		Help: "Notification attempts that failed.",
	})
	s.externalCalls = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "matchday_external_calls_total",
		Help: "Calls made to the odds provider and research service.",
	})
	s.cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "matchday_research_cache_hits_total",
		Help: "Research lookups served from cache.",
	})
	s.stageErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "matchday_stage_errors_total",
		Help: "Errors caught at a pipeline stage boundary.",
	}, []string{"stage"})
	s.runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "matchday_run_duration_seconds",
		Help:    "Wall-clock duration of a run.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})
	s.lastRunTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "matchday_last_run_timestamp_seconds",
		Help: "Start time of the most recent run.",
	})

	s.register(reg, s.runsTotal, "matchday_runs_total")
	s.register(reg, s.eventsProcessed, "matchday_events_processed_total")
	s.register(reg, s.successesTotal, "matchday_enrichment_successes_total")
	s.register(reg, s.failuresTotal, "matchday_enrichment_failures_total")
	s.register(reg, s.notificationsSent, "matchday_notifications_sent_total")
	s.register(reg, s.deliveryFailures, "matchday_delivery_failures_total")
	s.register(reg, s.externalCalls, "matchday_external_calls_total")
	s.register(reg, s.cacheHits, "matchday_research_cache_hits_total")
	s.register(reg, s.stageErrors, "matchday_stage_errors_total")
	s.register(reg, s.runDuration, "matchday_run_duration_seconds")
	s.register(reg, s.lastRunTimestamp, "matchday_last_run_timestamp_seconds")
	return s
}

// register attempts to register a collector, logging any errors without propagating them.
func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		s.logger.WithError(err).WithField("metric", name).Warn("failed to register metric")
	}
}

// RunCompleted adds a run's totals to the counters
func (s *PrometheusSink) RunCompleted(summary *types.RunSummary) {
	if summary == nil {
		return
	}
	s.runsTotal.WithLabelValues(string(summary.Status)).Inc()
	s.eventsProcessed.Add(float64(summary.EventsProcessed))
	s.successesTotal.Add(float64(summary.Successes))
	s.failuresTotal.Add(float64(summary.Failures))
	s.notificationsSent.Add(float64(summary.NotificationsSent))
	s.deliveryFailures.Add(float64(summary.DeliveryFailures))
	s.externalCalls.Add(float64(summary.ExternalCalls))
	s.cacheHits.Add(float64(summary.CacheHits))
	s.runDuration.Observe(summary.Duration.Seconds())
	s.lastRunTimestamp.Set(float64(summary.StartedAt.Unix()))
}

// StageError counts a caught stage error
func (s *PrometheusSink) StageError(stage string) {
	s.stageErrors.WithLabelValues(stage).Inc()
}

// Pusher pushes a sink's registry to a Prometheus Pushgateway after each run.
// It wraps another Sink so the pipeline sees a single Sink.
type Pusher struct {
	*PrometheusSink
	pusher *push.Pusher
}

// NewPusher creates a Pushgateway-backed sink for job
func NewPusher(url, job string, reg *prometheus.Registry, logger *logrus.Logger) *Pusher {
	sink := NewPrometheusSink(reg, logger)
	return &Pusher{
		PrometheusSink: sink,
		pusher:         push.New(url, job).Gatherer(reg),
	}
}

// RunCompleted records the run and pushes. Push failures are logged only.
func (p *Pusher) RunCompleted(summary *types.RunSummary) {
	p.PrometheusSink.RunCompleted(summary)
	if err := p.Push(context.Background()); err != nil {
		p.logger.WithError(err).Warn("failed to push metrics")
	}
}

// Push sends the current registry contents to the gateway
func (p *Pusher) Push(ctx context.Context) error {
	if err := p.pusher.AddContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
