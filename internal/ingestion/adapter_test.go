package ingestion

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/matchday-agent/internal/db"
	"github.com/jonathan/matchday-agent/internal/period"
)

type stubFetcher struct {
	observations map[string][]Observation
	errs         map[string]error
	calls        int
}

func (s *stubFetcher) FetchCurrentAttributes(_ context.Context, category string) ([]Observation, error) {
	s.calls++
	if err := s.errs[category]; err != nil {
		return nil, err
	}
	return s.observations[category], nil
}

type failingStore struct {
	err error
}

func (f *failingStore) IngestObservation(_ context.Context, _ db.ObservationInput) (*db.ObservationResult, error) {
	return nil, f.err
}

func sampleObservations() []Observation {
	draw := 240.0
	return []Observation{
		{
			EventKey:      "e1",
			Category:      "EPL",
			ParticipantA:  "Arsenal",
			ParticipantB:  "Chelsea",
			ScheduledTime: time.Date(2025, 8, 16, 14, 0, 0, 0, time.UTC),
			Prices:        &Prices{Source: "Pinnacle", A: -120, B: 320, Draw: &draw},
		},
		{
			EventKey:      "e2",
			Category:      "EPL",
			ParticipantA:  "Everton",
			ParticipantB:  "Fulham",
			ScheduledTime: time.Date(2025, 8, 23, 14, 0, 0, 0, time.UTC),
		},
	}
}

func newTestAdapter(t *testing.T, fetcher Fetcher) (*Adapter, *db.DB, *test.Hook) {
	t.Helper()
	store, err := db.Open(context.Background(), db.DriverSQLite, filepath.Join(t.TempDir(), "matchday.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger, hook := test.NewNullLogger()
	resolver := period.NewResolver(period.DefaultEpoch, time.Friday, logger)
	a := NewAdapter(fetcher, store, resolver, logger)
	a.now = func() time.Time { return time.Date(2025, 8, 15, 9, 0, 0, 0, time.UTC) }
	return a, store, hook
}

func TestAdapter_IngestTwiceIsIdempotent(t *testing.T) {
	fetcher := &stubFetcher{observations: map[string][]Observation{"EPL": sampleObservations()}}
	a, store, _ := newTestAdapter(t, fetcher)
	ctx := context.Background()

	first, err := a.IngestCategory(ctx, "EPL")
	require.NoError(t, err)
	assert.Equal(t, 2, first.EventsCreated)
	assert.Equal(t, 1, first.SnapshotsAppended)

	second, err := a.IngestCategory(ctx, "EPL")
	require.NoError(t, err)
	assert.Equal(t, 0, second.EventsCreated)
	assert.Equal(t, 1, second.SnapshotsAppended)

	n, err := store.CountEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	history, err := store.SnapshotHistory(ctx, "e1", 0)
	require.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Equal(t, "Pinnacle", history[0].SourceLabel)
}

func TestAdapter_AssignsPeriods(t *testing.T) {
	fetcher := &stubFetcher{observations: map[string][]Observation{"EPL": sampleObservations()}}
	a, store, _ := newTestAdapter(t, fetcher)
	ctx := context.Background()

	_, err := a.IngestCategory(ctx, "EPL")
	require.NoError(t, err)

	periods, err := store.ListPeriods(ctx, "EPL")
	require.NoError(t, err)
	require.Len(t, periods, 2)
	assert.Equal(t, 2, periods[0].SequenceNumber)
	assert.Equal(t, time.Date(2025, 8, 22, 0, 0, 0, 0, time.UTC), periods[0].WindowStart)
	assert.Equal(t, 1, periods[1].SequenceNumber)
}

func TestAdapter_SkipsIncompleteObservations(t *testing.T) {
	obs := sampleObservations()
	obs[1].ParticipantB = ""
	fetcher := &stubFetcher{observations: map[string][]Observation{"EPL": obs}}
	a, _, hook := newTestAdapter(t, fetcher)

	stats, err := a.IngestCategory(context.Background(), "EPL")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.EventsCreated)
	assert.NotEmpty(t, hook.AllEntries())
}

func TestAdapter_IngestAll_TransientFailureContinues(t *testing.T) {
	fetcher := &stubFetcher{
		observations: map[string][]Observation{"EPL": sampleObservations()},
		errs:         map[string]error{"LALIGA": errors.New("connection reset")},
	}
	a, store, _ := newTestAdapter(t, fetcher)
	ctx := context.Background()

	all, err := a.IngestAll(ctx, []string{"LALIGA", "EPL"})
	require.NoError(t, err)
	require.Len(t, all, 2)

	var te *TransientError
	assert.True(t, errors.As(all[0].Err, &te))
	assert.Equal(t, 1, all[0].ExternalCalls)
	assert.Equal(t, 2, all[1].EventsCreated)
	assert.Equal(t, 2, fetcher.calls)

	n, err := store.CountEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestAdapter_StoreFailureIsFatal(t *testing.T) {
	fetcher := &stubFetcher{observations: map[string][]Observation{"EPL": sampleObservations()}}
	logger, _ := test.NewNullLogger()
	a := NewAdapter(fetcher, &failingStore{err: errors.New("disk I/O error")}, period.NewResolver(period.DefaultEpoch, time.Friday, logger), logger)

	_, err := a.IngestAll(context.Background(), []string{"EPL"})
	require.Error(t, err)
	var te *TransientError
	assert.False(t, errors.As(err, &te))
}

func TestAdapter_IntegrityErrorSkipsRow(t *testing.T) {
	fetcher := &stubFetcher{observations: map[string][]Observation{"EPL": sampleObservations()}}
	logger, _ := test.NewNullLogger()
	store := &failingStore{err: &db.IntegrityError{Message: "insert event"}}
	a := NewAdapter(fetcher, store, period.NewResolver(period.DefaultEpoch, time.Friday, logger), logger)

	stats, err := a.IngestCategory(context.Background(), "EPL")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Skipped)
}

func TestAdapter_TwoWayCategoryDropsDraw(t *testing.T) {
	obs := sampleObservations()[:1]
	obs[0].Category = "NBA"
	fetcher := &stubFetcher{observations: map[string][]Observation{"NBA": obs}}
	a, store, _ := newTestAdapter(t, fetcher)
	a.WithTwoWayCategories("NBA")

	_, err := a.IngestCategory(context.Background(), "NBA")
	require.NoError(t, err)

	history, err := store.SnapshotHistory(context.Background(), "e1", 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Nil(t, history[0].PriceDraw)
	assert.Equal(t, -120.0, history[0].PriceA)
}
