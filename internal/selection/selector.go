package selection

import (
	"context"
	"time"

	"github.com/jonathan/matchday-agent/internal/types"
)

// DefaultMaxPeriods bounds how many periods one call returns
const DefaultMaxPeriods = 5

// Store is the read side of the durable store used for work selection
type Store interface {
	PendingEnrichmentRows(ctx context.Context, now time.Time, category string) ([]types.PendingEvent, error)
	PendingDeliveryRows(ctx context.Context) ([]types.Delivery, error)
}

// Selector answers "what is left to do" without mutating state
type Selector struct {
	store      Store
	maxPeriods int
}

// NewSelector creates a selector. A non-positive maxPeriods uses DefaultMaxPeriods.
func NewSelector(store Store, maxPeriods int) *Selector {
	if maxPeriods <= 0 {
		maxPeriods = DefaultMaxPeriods
	}
	return &Selector{store: store, maxPeriods: maxPeriods}
}

// PendingEnrichment returns future events lacking a current result in periods still open at now,
// grouped by period newest first. Within a period events are ordered soonest first.
func (s *Selector) PendingEnrichment(ctx context.Context, now time.Time, category string) ([]types.PeriodWork, error) {
	rows, err := s.store.PendingEnrichmentRows(ctx, now, category)
	if err != nil {
		return nil, &Error{Message: "failed to select pending enrichment", Cause: err}
	}
	return groupByPeriod(rows, s.maxPeriods), nil
}

// PendingDelivery returns results whose delivered flag is still false
func (s *Selector) PendingDelivery(ctx context.Context) ([]types.Delivery, error) {
	deliveries, err := s.store.PendingDeliveryRows(ctx)
	if err != nil {
		return nil, &Error{Message: "failed to select pending delivery", Cause: err}
	}
	return deliveries, nil
}

// groupByPeriod folds store-ordered rows into per-period work, keeping at most limit periods
func groupByPeriod(rows []types.PendingEvent, limit int) []types.PeriodWork {
	var work []types.PeriodWork
	for _, row := range rows {
		n := len(work)
		if n > 0 && work[n-1].Period.ID == row.Period.ID {
			work[n-1].Events = append(work[n-1].Events, row.Event)
			continue
		}
		if n == limit {
			break
		}
		work = append(work, types.PeriodWork{Period: row.Period, Events: []types.Event{row.Event}})
	}
	return work
}

// Flatten lists the events of grouped work in processing order
func Flatten(work []types.PeriodWork) []types.PendingEvent {
	var out []types.PendingEvent
	for _, w := range work {
		for _, e := range w.Events {
			out = append(out, types.PendingEvent{Period: w.Period, Event: e})
		}
	}
	return out
}

// PeriodIDs returns the IDs of the periods in grouped work
func PeriodIDs(work []types.PeriodWork) []int64 {
	ids := make([]int64, 0, len(work))
	for _, w := range work {
		ids = append(ids, w.Period.ID)
	}
	return ids
}
