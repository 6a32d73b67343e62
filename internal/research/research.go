// Package research gathers free-text context about an upcoming event from a
// grounded LLM, with results cached per query.
package research

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/matchday-agent/internal/llm"
	"github.com/jonathan/matchday-agent/internal/prompts"
)

// Request describes the event being researched
type Request struct {
	ParticipantA  string
	ParticipantB  string
	ScheduledTime time.Time
}

// Outcome is the research text plus accounting for the run summary
type Outcome struct {
	Text         string
	CacheHit     bool
	ExternalCall bool
	// Err is set when the research call failed. Text then carries the failure note.
	Err error
}

// Researcher produces research text for events
type Researcher struct {
	client llm.Client
	tier   llm.ModelTier
	cache  Cache
	ttl    time.Duration
	logger *logrus.Logger
}

// Option configures a Researcher
type Option func(*Researcher)

// WithCache enables caching of research text
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(r *Researcher) {
		r.cache = cache
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithTier sets the model tier used for research calls
func WithTier(tier llm.ModelTier) Option {
	return func(r *Researcher) { r.tier = tier }
}

// NewResearcher creates a Researcher backed by an LLM client
func NewResearcher(client llm.Client, logger *logrus.Logger, opts ...Option) *Researcher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	r := &Researcher{
		client: client,
		tier:   llm.TierLite,
		ttl:    DefaultCacheTTL,
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Query renders the research prompt for a request
func Query(req Request) (string, error) {
	return prompts.Render(prompts.ResearchFile, "match-research", map[string]string{
		"Home": req.ParticipantA,
		"Away": req.ParticipantB,
		"Date": req.ScheduledTime.UTC().Format("January 2, 2006"),
	})
}

// Research returns context for the event. It never fails the caller: a failed
// lookup yields a short note naming the error so enrichment can still proceed.
func (r *Researcher) Research(ctx context.Context, req Request) Outcome {
	log := r.logger.WithFields(logrus.Fields{
		"participant_a": req.ParticipantA,
		"participant_b": req.ParticipantB,
	})

	query, err := Query(req)
	if err != nil {
		return r.failed(req, err)
	}
	key := CacheKey(query)

	if r.cache != nil {
		content, ok, err := r.cache.Get(ctx, key)
		if err != nil {
			log.WithError(err).Warn("research cache read failed")
		} else if ok {
			log.Debug("research cache hit")
			return Outcome{Text: content, CacheHit: true}
		}
	}

	text, err := r.client.GenerateContent(ctx, query, r.tier)
	if err != nil {
		log.WithError(err).Warn("research call failed")
		out := r.failed(req, err)
		out.ExternalCall = true
		return out
	}

	if r.cache != nil && text != "" {
		if err := r.cache.Set(ctx, key, query, text, r.ttl); err != nil {
			log.WithError(err).Warn("research cache write failed")
		}
	}
	return Outcome{Text: text, ExternalCall: true}
}

func (r *Researcher) failed(req Request, cause error) Outcome {
	note, err := prompts.Render(prompts.ResearchFile, "research-failed", map[string]string{
		"Home":  req.ParticipantA,
		"Away":  req.ParticipantB,
		"Error": cause.Error(),
	})
	if err != nil {
		note = "Research unavailable: " + cause.Error()
	}
	return Outcome{Text: note, Err: cause}
}
