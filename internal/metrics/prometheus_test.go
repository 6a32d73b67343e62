package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/matchday-agent/internal/types"
)

func sampleSummary(status string) *types.RunSummary {
	return &types.RunSummary{
		RunID:             uuid.New(),
		Status:            status,
		EventsProcessed:   4,
		Successes:         3,
		Failures:          1,
		NotificationsSent: 2,
		DeliveryFailures:  1,
		ExternalCalls:     6,
		CacheHits:         1,
		StartedAt:         time.Date(2025, 8, 16, 9, 0, 0, 0, time.UTC),
		Duration:          42 * time.Second,
	}
}

func TestPrometheusSink_RunCompleted(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewPrometheusSink(reg, nil)

	sink.RunCompleted(sampleSummary(types.RunStatusCompleted))
	sink.RunCompleted(sampleSummary(types.RunStatusFailed))

	assert.Equal(t, 1.0, testutil.ToFloat64(sink.runsTotal.WithLabelValues(types.RunStatusCompleted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.runsTotal.WithLabelValues(types.RunStatusFailed)))
	assert.Equal(t, 8.0, testutil.ToFloat64(sink.eventsProcessed))
	assert.Equal(t, 6.0, testutil.ToFloat64(sink.successesTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(sink.failuresTotal))
	assert.Equal(t, 4.0, testutil.ToFloat64(sink.notificationsSent))
	assert.Equal(t, 2.0, testutil.ToFloat64(sink.deliveryFailures))
	assert.Equal(t, 12.0, testutil.ToFloat64(sink.externalCalls))
	assert.Equal(t, 2.0, testutil.ToFloat64(sink.cacheHits))
	assert.Equal(t, float64(time.Date(2025, 8, 16, 9, 0, 0, 0, time.UTC).Unix()), testutil.ToFloat64(sink.lastRunTimestamp))

	sink.RunCompleted(nil)
	assert.Equal(t, 8.0, testutil.ToFloat64(sink.eventsProcessed))
}

func TestPrometheusSink_StageError(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewPrometheusSink(reg, nil)

	sink.StageError(StageNotify)
	sink.StageError(StageNotify)
	sink.StageError(StageEnrich)

	assert.Equal(t, 2.0, testutil.ToFloat64(sink.stageErrors.WithLabelValues(StageNotify)))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.stageErrors.WithLabelValues(StageEnrich)))
}

func TestPrometheusSink_DoubleRegistrationLogs(t *testing.T) {
	reg := prometheus.NewRegistry()
	logger, hook := test.NewNullLogger()

	NewPrometheusSink(reg, logger)
	second := NewPrometheusSink(reg, logger)

	assert.NotEmpty(t, hook.AllEntries())
	assert.NotPanics(t, func() { second.RunCompleted(sampleSummary(types.RunStatusCompleted)) })
}

func TestPusher_PushesAfterRun(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.Path)
		bodies = append(bodies, string(body))
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	logger, hook := test.NewNullLogger()
	p := NewPusher(server.URL, "matchday", prometheus.NewRegistry(), logger)
	p.RunCompleted(sampleSummary(types.RunStatusCompleted))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, paths, 1)
	assert.Equal(t, "POST /metrics/job/matchday", paths[0])
	assert.NotEmpty(t, bodies[0])
	assert.Empty(t, hook.AllEntries())
}

func TestPusher_PushFailureIsLogged(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	logger, hook := test.NewNullLogger()
	p := NewPusher(server.URL, "matchday", prometheus.NewRegistry(), logger)

	assert.NotPanics(t, func() { p.RunCompleted(sampleSummary(types.RunStatusCompleted)) })
	require.NotEmpty(t, hook.AllEntries())
	assert.Equal(t, "failed to push metrics", hook.LastEntry().Message)
}

func TestNoopSink(t *testing.T) {
	var s Sink = NewNoopSink()
	assert.NotPanics(t, func() {
		s.RunCompleted(sampleSummary(types.RunStatusCompleted))
		s.StageError(StageIngest)
	})
}
