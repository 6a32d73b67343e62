package research

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
	"github.com/jonathan/matchday-agent/internal/llm"
)

type fakeLLM struct {
	text    string
	err     error
	calls   int
	prompts []string
	tiers   []llm.ModelTier
}

func (f *fakeLLM) GenerateContent(_ context.Context, prompt string, tier llm.ModelTier) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.tiers = append(f.tiers, tier)
	return f.text, f.err
}

func (f *fakeLLM) GenerateJSON(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeLLM) GetModel(_ llm.ModelTier) string { return "fake" }

func (f *fakeLLM) Close() error { return nil }

type memCache struct {
	entries map[string]string
	getErr  error
}

func (m *memCache) Get(_ context.Context, key string) (string, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key, _, content string, _ time.Duration) error {
	if m.entries == nil {
		m.entries = map[string]string{}
	}
	m.entries[key] = content
	return nil
}

var sampleRequest = Request{
	ParticipantA:  "Arsenal",
	ParticipantB:  "Chelsea",
	ScheduledTime: time.Date(2025, 8, 16, 14, 0, 0, 0, time.UTC),
}

func TestQuery(t *testing.T) {
	q, err := Query(sampleRequest)
	require.NoError(t, err)
	assert.Contains(t, q, "Arsenal vs Chelsea match on August 16, 2025")
	assert.NotContains(t, q, "{{.")
}

func TestCacheKey(t *testing.T) {
	a := CacheKey("arsenal chelsea")
	assert.Len(t, a, 64)
	assert.Equal(t, a, CacheKey("arsenal chelsea"))
	assert.NotEqual(t, a, CacheKey("arsenal spurs"))
}

func TestResearch_NoCache(t *testing.T) {
	client := &fakeLLM{text: "Saka is fit."}
	logger, _ := test.NewNullLogger()
	r := NewResearcher(client, logger, WithTier(llm.TierStandard))

	out := r.Research(context.Background(), sampleRequest)
	assert.Equal(t, "Saka is fit.", out.Text)
	assert.True(t, out.ExternalCall)
	assert.False(t, out.CacheHit)
	assert.NoError(t, out.Err)
	assert.Equal(t, []llm.ModelTier{llm.TierStandard}, client.tiers)
}

func TestResearch_CacheHitSkipsCall(t *testing.T) {
	client := &fakeLLM{text: "Saka is fit."}
	logger, _ := test.NewNullLogger()
	r := NewResearcher(client, logger, WithCache(&memCache{}, time.Hour))
	ctx := context.Background()

	first := r.Research(ctx, sampleRequest)
	second := r.Research(ctx, sampleRequest)

	assert.Equal(t, 1, client.calls)
	assert.True(t, first.ExternalCall)
	assert.True(t, second.CacheHit)
	assert.False(t, second.ExternalCall)
	assert.Equal(t, first.Text, second.Text)
}

func TestResearch_FailureBecomesNote(t *testing.T) {
	client := &fakeLLM{err: errors.New("quota exhausted")}
	logger, hook := test.NewNullLogger()
	cache := &memCache{}
	r := NewResearcher(client, logger, WithCache(cache, time.Hour))

	out := r.Research(context.Background(), sampleRequest)
	require.Error(t, out.Err)
	assert.True(t, out.ExternalCall)
	assert.Equal(t, "Research unavailable for Arsenal vs Chelsea: quota exhausted", out.Text)
	assert.Empty(t, cache.entries, "failures are not cached")
	assert.NotEmpty(t, hook.AllEntries())
}

func TestResearch_CacheReadErrorFallsThrough(t *testing.T) {
	client := &fakeLLM{text: "fresh"}
	logger, _ := test.NewNullLogger()
	r := NewResearcher(client, logger, WithCache(&memCache{getErr: errors.New("conn refused")}, 0))

	out := r.Research(context.Background(), sampleRequest)
	assert.Equal(t, "fresh", out.Text)
	assert.Equal(t, 1, client.calls)
}

func TestResearch_WithStoreCache(t *testing.T) {
	ctx := context.Background()
	store, err := db.Open(ctx, db.DriverSQLite, filepath.Join(t.TempDir(), "matchday.db"))
	require.NoError(t, err)
	defer store.Close()

	client := &fakeLLM{text: "Palmer doubtful."}
	r := NewResearcher(client, nil, WithCache(db.NewResearchCache(store), time.Hour))

	r.Research(ctx, sampleRequest)
	out := r.Research(ctx, sampleRequest)
	assert.True(t, out.CacheHit)
	assert.Equal(t, "Palmer doubtful.", out.Text)
	assert.Equal(t, 1, client.calls)
}
