// Package pipeline drives one run: ingest, discover work, deliver pending results,
// then research, enrich, persist and notify one event at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/matchday-agent/internal/analysis"
	"github.com/jonathan/matchday-agent/internal/db"
	"github.com/jonathan/matchday-agent/internal/ingestion"
	"github.com/jonathan/matchday-agent/internal/metrics"
	"github.com/jonathan/matchday-agent/internal/pipeline/steps"
	"github.com/jonathan/matchday-agent/internal/research"
	"github.com/jonathan/matchday-agent/internal/selection"
	"github.com/jonathan/matchday-agent/internal/types"
)

// historyDepth is how many snapshots (latest and previous) feed the prompt
const historyDepth = 2

// Store is the durable store as seen by the runner
type Store interface {
	selection.Store
	SnapshotHistory(ctx context.Context, externalID string, limit int) ([]types.AttributeSnapshot, error)
	SaveEnrichment(ctx context.Context, r *types.EnrichmentResult, opts db.SaveOptions) (int64, error)
	MarkDelivered(ctx context.Context, externalID string) (bool, error)
	InsertRunSummary(ctx context.Context, s *types.RunSummary) error
}

// Ingester refreshes events and snapshots for a set of categories
type Ingester interface {
	IngestAll(ctx context.Context, categories []string) ([]ingestion.Stats, error)
}

// Researcher gathers context for an event. It never fails; failures are embedded in the text.
type Researcher interface {
	Research(ctx context.Context, req research.Request) research.Outcome
}

// Generator produces an enrichment result or a GenerationError
type Generator interface {
	Generate(ctx context.Context, in analysis.Input) (*types.EnrichmentResult, error)
}

// Notifier delivers results. Failures are DeliveryErrors.
type Notifier interface {
	BeginRun()
	Notify(ctx context.Context, d types.Delivery) error
}

// ProgressEvent represents a state transition during a run
type ProgressEvent struct {
	Step     steps.State `json:"step"`
	Category string      `json:"category"`
	Message  string      `json:"message"`
	RunID    string      `json:"run_id,omitempty"`
	Content  any         `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Dependencies are the collaborators a Runner drives
type Dependencies struct {
	Store      Store
	Ingester   Ingester
	Researcher Researcher
	Generator  Generator
	Notifier   Notifier
	Metrics    metrics.Sink
	Logger     *logrus.Logger
}

// RunOptions holds configuration for a run
type RunOptions struct {
	// Categories are ingested in order
	Categories []string
	// Category restricts enrichment to one category; empty means all
	Category   string
	MaxPeriods int
	SkipIngest bool
	OnProgress ProgressCallback
}

// Runner executes pipeline runs
type Runner struct {
	deps     Dependencies
	opts     RunOptions
	selector *selection.Selector
	now      func() time.Time
}

// NewRunner creates a Runner
func NewRunner(deps Dependencies, opts RunOptions) *Runner {
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNoopSink()
	}
	return &Runner{
		deps:     deps,
		opts:     opts,
		selector: selection.NewSelector(deps.Store, opts.MaxPeriods),
		now:      time.Now,
	}
}

// run is the state owned by a single Run call
type run struct {
	state      steps.State
	summary    *types.RunSummary
	log        *logrus.Entry
	deliveries []types.Delivery
	queue      []types.PendingEvent
}

// Run executes one pass of the state machine. The summary is always returned and
// recorded, also when the run aborts on a fatal store error.
func (r *Runner) Run(ctx context.Context) (*types.RunSummary, error) {
	started := r.now()
	id := uuid.New()
	rs := &run{
		state: steps.Ingest,
		summary: &types.RunSummary{
			RunID:     id,
			Status:    types.RunStatusCompleted,
			StartedAt: started.UTC(),
			PeriodIDs: []int64{},
		},
		log: r.deps.Logger.WithField("run_id", id.String()),
	}
	rs.log.Info("run started")

	err := r.execute(ctx, rs)

	rs.summary.Duration = r.now().Sub(started)
	if err != nil {
		rs.summary.Status = types.RunStatusFailed
		rs.summary.ErrorMessage = err.Error()
		rs.log.WithError(err).Error("run aborted")
	}
	r.record(rs)
	return rs.summary, err
}

func (r *Runner) record(rs *run) {
	s := rs.summary
	// A fresh context so a cancelled run still leaves its record
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.deps.Store.InsertRunSummary(ctx, s); err != nil {
		rs.log.WithError(err).Warn("failed to record run summary")
	}
	r.deps.Metrics.RunCompleted(s)

	rs.log.WithFields(logrus.Fields{
		"status":             s.Status,
		"events_processed":   s.EventsProcessed,
		"successes":          s.Successes,
		"failures":           s.Failures,
		"notifications_sent": s.NotificationsSent,
		"delivery_failures":  s.DeliveryFailures,
		"external_calls":     s.ExternalCalls,
		"cache_hits":         s.CacheHits,
		"duration":           s.Duration.String(),
	}).Info("run finished")
}

func (r *Runner) transition(rs *run, to steps.State, message string) error {
	if err := steps.ValidateTransition(rs.state, to); err != nil {
		return err
	}
	rs.log.WithFields(logrus.Fields{"from": rs.state, "to": to}).Debug("transition")
	rs.state = to
	if r.opts.OnProgress != nil {
		r.opts.OnProgress(ProgressEvent{
			Step:     to,
			Category: steps.StateRegistry[to].Category,
			Message:  message,
			RunID:    rs.summary.RunID.String(),
		})
	}
	return nil
}

func (r *Runner) execute(ctx context.Context, rs *run) error {
	if r.deps.Notifier != nil {
		r.deps.Notifier.BeginRun()
	}

	if err := r.ingest(ctx, rs); err != nil {
		return err
	}
	if err := r.discover(ctx, rs); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run cancelled: %w", err)
		}

		next := steps.Decide(len(rs.deliveries), len(rs.queue))
		switch next {
		case steps.DeliverPending:
			d := rs.deliveries[0]
			rs.deliveries = rs.deliveries[1:]
			if err := r.transition(rs, next, "delivering "+d.Event.ExternalID); err != nil {
				return err
			}
			if err := r.deliver(ctx, rs, d); err != nil {
				return err
			}
		case steps.Research:
			pe := rs.queue[0]
			rs.queue = rs.queue[1:]
			if err := r.transition(rs, next, "researching "+pe.Event.ExternalID); err != nil {
				return err
			}
			if err := r.processEvent(ctx, rs, pe); err != nil {
				return err
			}
		default:
			return r.transition(rs, steps.Done, "no work left")
		}
	}
}

func (r *Runner) ingest(ctx context.Context, rs *run) error {
	if r.opts.SkipIngest || r.deps.Ingester == nil {
		rs.log.Info("ingestion skipped")
		return nil
	}

	stats, err := r.deps.Ingester.IngestAll(ctx, r.opts.Categories)
	for _, s := range stats {
		rs.summary.ExternalCalls += s.ExternalCalls
		if s.Err != nil {
			r.deps.Metrics.StageError(metrics.StageIngest)
		}
	}
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	return nil
}

func (r *Runner) discover(ctx context.Context, rs *run) error {
	if err := r.transition(rs, steps.DiscoverWork, "discovering work"); err != nil {
		return err
	}

	work, err := r.selector.PendingEnrichment(ctx, r.now(), r.opts.Category)
	if err != nil {
		return err
	}
	deliveries, err := r.selector.PendingDelivery(ctx)
	if err != nil {
		return err
	}

	rs.queue = selection.Flatten(work)
	rs.deliveries = deliveries
	rs.summary.PeriodIDs = selection.PeriodIDs(work)

	rs.log.WithFields(logrus.Fields{
		"periods":            len(work),
		"pending_enrichment": len(rs.queue),
		"pending_delivery":   len(rs.deliveries),
	}).Info("work discovered")
	return nil
}

// processEvent takes one event through research, enrichment, persistence and notification.
// Only store failures other than integrity errors are returned.
func (r *Runner) processEvent(ctx context.Context, rs *run, pe types.PendingEvent) error {
	event := pe.Event
	log := rs.log.WithFields(logrus.Fields{
		"event_id": event.ExternalID,
		"period":   pe.Period.SequenceNumber,
		"category": event.Category,
	})
	rs.summary.EventsProcessed++

	// RESEARCH
	out := r.deps.Researcher.Research(ctx, research.Request{
		ParticipantA:  event.ParticipantA,
		ParticipantB:  event.ParticipantB,
		ScheduledTime: event.ScheduledTime,
	})
	if out.ExternalCall {
		rs.summary.ExternalCalls++
	}
	if out.CacheHit {
		rs.summary.CacheHits++
	}
	if out.Err != nil {
		r.deps.Metrics.StageError(metrics.StageResearch)
		log.WithError(out.Err).Warn("research degraded")
	}

	// ENRICH
	if err := r.transition(rs, steps.Enrich, "enriching "+event.ExternalID); err != nil {
		return err
	}
	history, err := r.deps.Store.SnapshotHistory(ctx, event.ExternalID, historyDepth)
	if err != nil {
		return fmt.Errorf("failed to load snapshot history: %w", err)
	}
	result, err := r.deps.Generator.Generate(ctx, analysis.Input{Event: event, History: history, Research: out.Text})
	if err != nil {
		var genErr *analysis.GenerationError
		if !errors.As(err, &genErr) {
			genErr = &analysis.GenerationError{EventID: event.ExternalID, Message: "generator failed", Cause: err}
		}
		if !genErr.BeforeCall {
			rs.summary.ExternalCalls++
		}
		rs.summary.Failures++
		r.deps.Metrics.StageError(metrics.StageEnrich)
		log.WithError(genErr).Warn("generation failed, event stays pending")
		return nil
	}
	rs.summary.ExternalCalls++

	// PERSIST
	if err := r.transition(rs, steps.Persist, "persisting "+event.ExternalID); err != nil {
		return err
	}
	result.EventExternalID = event.ExternalID
	result.Delivered = false
	id, err := r.deps.Store.SaveEnrichment(ctx, result, db.SaveOptions{})
	if err != nil {
		if db.IsIntegrityError(err) {
			rs.summary.Failures++
			r.deps.Metrics.StageError(metrics.StagePersist)
			log.WithError(err).Warn("result rejected by store, skipping")
			return nil
		}
		return fmt.Errorf("failed to persist result: %w", err)
	}
	result.ID = id
	rs.summary.Successes++

	// NOTIFY
	if err := r.transition(rs, steps.Notify, "notifying "+event.ExternalID); err != nil {
		return err
	}
	return r.deliver(ctx, rs, types.Delivery{Event: event, Result: *result})
}

// deliver attempts one send and marks the result delivered on success.
// Only a store failure while marking is returned.
func (r *Runner) deliver(ctx context.Context, rs *run, d types.Delivery) error {
	log := rs.log.WithField("event_id", d.Event.ExternalID)
	if r.deps.Notifier == nil {
		log.Debug("no notifier configured, result left undelivered")
		return nil
	}

	err := r.deps.Notifier.Notify(ctx, d)
	rs.summary.ExternalCalls++
	if err != nil {
		rs.summary.DeliveryFailures++
		r.deps.Metrics.StageError(metrics.StageNotify)
		log.WithError(err).Warn("delivery failed, will retry next run")
		return nil
	}

	marked, err := r.deps.Store.MarkDelivered(ctx, d.Event.ExternalID)
	if err != nil {
		return fmt.Errorf("failed to mark %s delivered: %w", d.Event.ExternalID, err)
	}
	if !marked {
		log.Warn("result was already marked delivered")
		return nil
	}
	rs.summary.NotificationsSent++
	log.Info("result delivered")
	return nil
}
