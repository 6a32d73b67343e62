// Package types provides type definitions for structured data used throughout the matchday agent.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "time"

// Period is a recurring scheduling bucket (a league's match week) for one category
type Period struct {
	ID                 int64     `json:"id"`
	Category           string    `json:"category"`
	SequenceNumber     int       `json:"sequence_number"`
	WindowStart        time.Time `json:"window_start"`
	WindowEnd          time.Time `json:"window_end"`
	ObservedEventCount int       `json:"observed_event_count"`
}

// Event is a single scheduled fixture, keyed by the ingestion source's external ID
type Event struct {
	ExternalID    string    `json:"external_id"`
	Category      string    `json:"category"`
	ParticipantA  string    `json:"participant_a"` // home side
	ParticipantB  string    `json:"participant_b"` // away side
	ScheduledTime time.Time `json:"scheduled_time"`
	PeriodID      int64     `json:"period_id"`
}

// AttributeSnapshot is one append-only observation of an event's odds.
// PriceDraw is nil for categories (or sources) that do not quote a draw.
type AttributeSnapshot struct {
	ID              int64     `json:"id"`
	EventExternalID string    `json:"event_external_id"`
	SourceLabel     string    `json:"source_label"`
	PriceA          float64   `json:"price_a"`
	PriceB          float64   `json:"price_b"`
	PriceDraw       *float64  `json:"price_draw,omitempty"`
	ObservedAt      time.Time `json:"observed_at"`
}

// PendingEvent pairs an event needing enrichment with its owning period
type PendingEvent struct {
	Period Period
	Event  Event
}

// PeriodWork is the outstanding enrichment work for one period
type PeriodWork struct {
	Period Period  `json:"period"`
	Events []Event `json:"events"`
}

// Delivery is an enrichment result awaiting notification, joined to its event
type Delivery struct {
	Event  Event            `json:"event"`
	Result EnrichmentResult `json:"result"`
}
