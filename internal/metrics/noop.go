package metrics

import "github.com/jonathan/matchday-agent/internal/types"

// NoopSink is a no-op implementation of Sink.
// Used when metrics are disabled to avoid nil checks.
type NoopSink struct{}

// NewNoopSink returns a no-op metrics sink.
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (n *NoopSink) RunCompleted(summary *types.RunSummary) {}
func (n *NoopSink) StageError(stage string)                {}
