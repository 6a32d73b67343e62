// Package metrics records per-run counters. Sinks never block a run or return errors.
package metrics

import "github.com/jonathan/matchday-agent/internal/types"

// Sink receives run-level measurements
type Sink interface {
	// RunCompleted records the totals of a finished run, whatever its status
	RunCompleted(summary *types.RunSummary)
	// StageError counts an error caught at a pipeline stage boundary
	StageError(stage string)
}

// Stage labels for StageError
const (
	StageIngest   = "ingest"
	StageResearch = "research"
	StageEnrich   = "enrich"
	StagePersist  = "persist"
	StageNotify   = "notify"
)
