package period

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T) (*Resolver, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	return NewResolver(DefaultEpoch, time.Friday, logger), hook
}

func utc(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func TestResolve_Scenarios(t *testing.T) {
	r, _ := newTestResolver(t)

	tests := []struct {
		name      string
		scheduled string
		wantSeq   int
		wantStart string
		wantEnd   string
	}{
		{
			name:      "mid first window",
			scheduled: "2025-08-19T15:00:00Z",
			wantSeq:   1,
			wantStart: "2025-08-15T00:00:00Z",
			wantEnd:   "2025-08-19T23:59:59.999Z",
		},
		{
			name:      "day eight",
			scheduled: "2025-08-23T12:00:00Z",
			wantSeq:   2,
			wantStart: "2025-08-22T00:00:00Z",
			wantEnd:   "2025-08-26T23:59:59.999Z",
		},
		{
			name:      "exactly at anchor",
			scheduled: "2025-08-15T00:00:00Z",
			wantSeq:   1,
			wantStart: "2025-08-15T00:00:00Z",
			wantEnd:   "2025-08-19T23:59:59.999Z",
		},
		{
			name:      "last millisecond of cycle",
			scheduled: "2025-08-21T23:59:59.999Z",
			wantSeq:   1,
			wantStart: "2025-08-15T00:00:00Z",
			wantEnd:   "2025-08-19T23:59:59.999Z",
		},
		{
			name:      "tenth week",
			scheduled: "2025-10-18T19:30:00Z",
			wantSeq:   10,
			wantStart: "2025-10-17T00:00:00Z",
			wantEnd:   "2025-10-21T23:59:59.999Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := r.Resolve("EPL", utc(tt.scheduled))
			assert.Equal(t, "EPL", w.Category)
			assert.Equal(t, tt.wantSeq, w.Sequence)
			assert.True(t, utc(tt.wantStart).Equal(w.Start), "start = %s", w.Start)
			assert.True(t, utc(tt.wantEnd).Equal(w.End), "end = %s", w.End)
		})
	}
}

func TestResolve_NonUTCInput(t *testing.T) {
	r, _ := newTestResolver(t)
	loc := time.FixedZone("UTC+9", 9*3600)

	// 2025-08-23T02:00 at UTC+9 is still 2025-08-22 in UTC
	w := r.Resolve("EPL", time.Date(2025, 8, 23, 2, 0, 0, 0, loc))
	assert.Equal(t, 2, w.Sequence)
	assert.Equal(t, time.UTC, w.Start.Location())
}

func TestResolve_WindowSpan(t *testing.T) {
	r, _ := newTestResolver(t)
	want := 4*day + 23*time.Hour + 59*time.Minute + 59*time.Second + 999*time.Millisecond

	for h := 0; h < 24*60; h += 7 {
		w := r.Resolve("EPL", DefaultEpoch.Add(time.Duration(h)*time.Hour))
		require.Equal(t, want, w.End.Sub(w.Start))
	}
}

func TestResolve_SameCycleSameSequence(t *testing.T) {
	r, _ := newTestResolver(t)
	anchor := r.AnchorFor("EPL")

	for cycle := 0; cycle < 5; cycle++ {
		start := anchor.Add(time.Duration(cycle) * Length)
		first := r.Resolve("EPL", start)
		last := r.Resolve("EPL", start.Add(Length-time.Millisecond))
		assert.Equal(t, cycle+1, first.Sequence)
		assert.Equal(t, first.Sequence, last.Sequence)
		assert.Equal(t, first.Start, last.Start)
	}
}

func TestResolve_BeforeAnchorClampsWithWarning(t *testing.T) {
	r, hook := newTestResolver(t)

	w := r.Resolve("EPL", DefaultEpoch.Add(-time.Second))

	assert.Equal(t, 1, w.Sequence)
	assert.True(t, DefaultEpoch.Equal(w.Start))
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "EPL", hook.LastEntry().Data["category"])
}

func TestResolve_AfterAnchorNoWarning(t *testing.T) {
	r, hook := newTestResolver(t)
	r.Resolve("EPL", DefaultEpoch.Add(time.Hour))
	assert.Empty(t, hook.Entries)
}

func TestResolve_CategoryAnchor(t *testing.T) {
	r, _ := newTestResolver(t)
	r.WithCategoryAnchor("BUNDESLIGA", time.Date(2025, 8, 22, 0, 0, 0, 0, time.UTC))

	epl := r.Resolve("EPL", utc("2025-08-23T12:00:00Z"))
	bl := r.Resolve("BUNDESLIGA", utc("2025-08-23T12:00:00Z"))

	assert.Equal(t, 2, epl.Sequence)
	assert.Equal(t, 1, bl.Sequence)
	assert.True(t, epl.Start.Equal(bl.Start))
}

func TestAnchor_AdvancesToBoundaryWeekday(t *testing.T) {
	tests := []struct {
		name  string
		epoch time.Time
		want  time.Time
	}{
		{"already friday", time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC), time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)},
		{"wednesday", time.Date(2025, 8, 13, 0, 0, 0, 0, time.UTC), time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)},
		{"saturday", time.Date(2025, 8, 16, 0, 0, 0, 0, time.UTC), time.Date(2025, 8, 22, 0, 0, 0, 0, time.UTC)},
		{"truncates time of day", time.Date(2025, 8, 15, 18, 30, 0, 0, time.UTC), time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Anchor(tt.epoch, time.Friday))
		})
	}
}

func TestWindow_ContainsAndClosed(t *testing.T) {
	r, _ := newTestResolver(t)
	w := r.Resolve("EPL", utc("2025-08-19T15:00:00Z"))

	assert.True(t, w.Contains(w.Start))
	assert.True(t, w.Contains(w.End))
	assert.False(t, w.Contains(w.End.Add(time.Millisecond)))
	assert.False(t, w.Contains(w.Start.Add(-time.Millisecond)))

	assert.False(t, w.Closed(w.End))
	assert.True(t, w.Closed(w.End.Add(time.Millisecond)))
}

func TestParseWeekday(t *testing.T) {
	d, err := ParseWeekday("friday")
	require.NoError(t, err)
	assert.Equal(t, time.Friday, d)

	d, err = ParseWeekday("Sat")
	require.NoError(t, err)
	assert.Equal(t, time.Saturday, d)

	_, err = ParseWeekday("someday")
	assert.Error(t, err)
}
