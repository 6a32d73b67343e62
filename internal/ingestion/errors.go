// Package ingestion pulls current odds for each league and records them in the store.
package ingestion

import "fmt"

// TransientError represents a failed fetch for one category.
// The run proceeds with whatever data is already stored.
type TransientError struct {
	Category string
	Message  string
	Cause    error
}

func (e *TransientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("transient ingestion error for %s: %s: %v", e.Category, e.Message, e.Cause)
	}
	return fmt.Sprintf("transient ingestion error for %s: %s", e.Category, e.Message)
}

func (e *TransientError) Unwrap() error {
	return e.Cause
}
