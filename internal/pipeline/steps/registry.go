// Package steps defines the pipeline states and the transitions allowed between them.
package steps

import (
	"fmt"
	"slices"
)

// State is one node of the pipeline state machine
type State string

// Pipeline states
const (
	Ingest         State = "INGEST"
	DiscoverWork   State = "DISCOVER_WORK"
	DeliverPending State = "DELIVER_PENDING"
	Research       State = "RESEARCH"
	Enrich         State = "ENRICH"
	Persist        State = "PERSIST"
	Notify         State = "NOTIFY"
	Done           State = "DONE"
)

// State categories, used to group progress output
const (
	CategoryIngestion  = "ingestion"
	CategorySelection  = "selection"
	CategoryEnrichment = "enrichment"
	CategoryDelivery   = "delivery"
)

// StateDefinition defines metadata for a pipeline state
type StateDefinition struct {
	Name     State
	Category string
	// Next lists the states reachable from this one
	Next []State
}

// decisionTargets are the states the decision point can choose between
var decisionTargets = []State{DeliverPending, Research, Done}

// StateRegistry holds every state and its outgoing transitions
var StateRegistry = map[State]StateDefinition{
	Ingest: {
		Name:     Ingest,
		Category: CategoryIngestion,
		Next:     []State{DiscoverWork},
	},
	DiscoverWork: {
		Name:     DiscoverWork,
		Category: CategorySelection,
		Next:     decisionTargets,
	},
	DeliverPending: {
		Name:     DeliverPending,
		Category: CategoryDelivery,
		Next:     decisionTargets,
	},
	Research: {
		Name:     Research,
		Category: CategoryEnrichment,
		Next:     []State{Enrich},
	},
	Enrich: {
		Name:     Enrich,
		Category: CategoryEnrichment,
		// generation failure returns straight to the decision point
		Next: append([]State{Persist}, decisionTargets...),
	},
	Persist: {
		Name:     Persist,
		Category: CategoryEnrichment,
		// an integrity error skips notification
		Next: append([]State{Notify}, decisionTargets...),
	},
	Notify: {
		Name:     Notify,
		Category: CategoryDelivery,
		Next:     decisionTargets,
	},
	Done: {
		Name:     Done,
		Category: CategorySelection,
	},
}

// TransitionError is returned for a transition missing from the registry
type TransitionError struct {
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal transition %s -> %s", e.From, e.To)
}

// ValidateTransition checks that to is reachable from from
func ValidateTransition(from, to State) error {
	def, ok := StateRegistry[from]
	if !ok {
		return fmt.Errorf("unknown state: %s", from)
	}
	if _, ok := StateRegistry[to]; !ok {
		return fmt.Errorf("unknown state: %s", to)
	}
	if !slices.Contains(def.Next, to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}

// Decide picks the next state at the decision point. Undelivered results are
// drained before any new event is researched.
func Decide(pendingDeliveries, pendingEvents int) State {
	switch {
	case pendingDeliveries > 0:
		return DeliverPending
	case pendingEvents > 0:
		return Research
	default:
		return Done
	}
}

// Terminal reports whether s has no outgoing transitions
func Terminal(s State) bool {
	return len(StateRegistry[s].Next) == 0
}
