package ingestion

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/matchday-agent/internal/db"
	"github.com/jonathan/matchday-agent/internal/period"
	"github.com/jonathan/matchday-agent/internal/types"
)

// Store is the write side of the durable store used by ingestion
type Store interface {
	IngestObservation(ctx context.Context, in db.ObservationInput) (*db.ObservationResult, error)
}

// Stats summarizes one category's ingestion
type Stats struct {
	Category          string
	Fetched           int
	EventsCreated     int
	SnapshotsAppended int
	Skipped           int
	ExternalCalls     int
	// Err is set when the fetch failed and the category was skipped
	Err error
}

// Adapter maps fetched observations onto periods and persists them
type Adapter struct {
	fetcher  Fetcher
	store    Store
	resolver *period.Resolver
	logger   *logrus.Logger
	now      func() time.Time
	// twoWay categories never carry a draw price
	twoWay map[string]bool
}

// NewAdapter creates an ingestion adapter
func NewAdapter(fetcher Fetcher, store Store, resolver *period.Resolver, logger *logrus.Logger) *Adapter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Adapter{
		fetcher:  fetcher,
		store:    store,
		resolver: resolver,
		logger:   logger,
		now:      time.Now,
		twoWay:   map[string]bool{},
	}
}

// WithTwoWayCategories marks categories whose markets have no draw outcome.
// Any draw price a source reports for them is dropped.
func (a *Adapter) WithTwoWayCategories(categories ...string) *Adapter {
	for _, c := range categories {
		a.twoWay[c] = true
	}
	return a
}

// IngestCategory fetches and stores the current observations for one category.
// A failed fetch is returned as a TransientError. Integrity errors skip the offending
// observation. Any other store error is returned and should abort the run.
func (a *Adapter) IngestCategory(ctx context.Context, category string) (*Stats, error) {
	stats := &Stats{Category: category, ExternalCalls: 1}
	log := a.logger.WithField("category", category)

	observations, err := a.fetcher.FetchCurrentAttributes(ctx, category)
	if err != nil {
		var te *TransientError
		if !errors.As(err, &te) {
			err = &TransientError{Category: category, Message: "fetch failed", Cause: err}
		}
		stats.Err = err
		return stats, err
	}
	stats.Fetched = len(observations)
	observedAt := a.now().UTC()

	for _, o := range observations {
		if o.EventKey == "" || o.ParticipantA == "" || o.ParticipantB == "" || o.ScheduledTime.IsZero() {
			log.WithField("event_id", o.EventKey).Warn("skipping incomplete observation")
			stats.Skipped++
			continue
		}

		res, err := a.store.IngestObservation(ctx, a.toInput(category, o, observedAt))
		if err != nil {
			if db.IsIntegrityError(err) {
				log.WithField("event_id", o.EventKey).WithError(err).Warn("skipping observation")
				stats.Skipped++
				continue
			}
			return stats, err
		}
		if res.EventCreated {
			stats.EventsCreated++
		}
		if res.SnapshotID != 0 {
			stats.SnapshotsAppended++
		}
	}

	log.WithFields(logrus.Fields{
		"fetched":   stats.Fetched,
		"created":   stats.EventsCreated,
		"snapshots": stats.SnapshotsAppended,
		"skipped":   stats.Skipped,
	}).Info("ingestion complete")
	return stats, nil
}

// IngestAll ingests each category in turn. Transient fetch failures are logged
// and recorded on the category's Stats; only fatal store errors are returned.
func (a *Adapter) IngestAll(ctx context.Context, categories []string) ([]Stats, error) {
	all := make([]Stats, 0, len(categories))
	for _, category := range categories {
		stats, err := a.IngestCategory(ctx, category)
		all = append(all, *stats)
		if err != nil {
			var te *TransientError
			if errors.As(err, &te) {
				a.logger.WithField("category", category).WithError(err).Warn("odds fetch failed, continuing with stored data")
				continue
			}
			return all, err
		}
	}
	return all, nil
}

func (a *Adapter) toInput(category string, o Observation, observedAt time.Time) db.ObservationInput {
	w := a.resolver.Resolve(category, o.ScheduledTime)
	in := db.ObservationInput{
		Period: types.Period{
			Category:       category,
			SequenceNumber: w.Sequence,
			WindowStart:    w.Start,
			WindowEnd:      w.End,
		},
		Event: types.Event{
			ExternalID:    o.EventKey,
			Category:      category,
			ParticipantA:  o.ParticipantA,
			ParticipantB:  o.ParticipantB,
			ScheduledTime: o.ScheduledTime.UTC(),
		},
	}
	if o.Prices != nil {
		in.Snapshot = &types.AttributeSnapshot{
			EventExternalID: o.EventKey,
			SourceLabel:     o.Prices.Source,
			PriceA:          o.Prices.A,
			PriceB:          o.Prices.B,
			PriceDraw:       o.Prices.Draw,
			ObservedAt:      observedAt,
		}
		if a.twoWay[category] {
			in.Snapshot.PriceDraw = nil
		}
	}
	return in
}
