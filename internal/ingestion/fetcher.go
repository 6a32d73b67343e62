package ingestion

import (
	"context"
	"time"
)

// Prices is one bookmaker's head-to-head line in American odds.
// Draw is nil when the market has no draw outcome.
type Prices struct {
	Source string
	A      float64
	B      float64
	Draw   *float64
}

// Observation is the current state of one fixture as reported by the source
type Observation struct {
	EventKey      string
	Category      string
	ParticipantA  string
	ParticipantB  string
	ScheduledTime time.Time
	// Prices is nil when no bookmaker quoted the fixture
	Prices *Prices
}

// Fetcher retrieves current fixture observations for a category
type Fetcher interface {
	FetchCurrentAttributes(ctx context.Context, category string) ([]Observation, error)
}
