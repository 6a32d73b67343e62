// Package analysis turns an event, its odds history and research text into a
// validated enrichment result using the LLM.
package analysis

import "fmt"

// GenerationError means no usable result could be produced for an event.
// The event stays pending and is retried on the next run.
type GenerationError struct {
	EventID string
	Message string
	Cause   error
	// BeforeCall is set when the failure happened before the model was called
	BeforeCall bool
}

func (e *GenerationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("generation failed for %s: %s: %v", e.EventID, e.Message, e.Cause)
	}
	return fmt.Sprintf("generation failed for %s: %s", e.EventID, e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}
