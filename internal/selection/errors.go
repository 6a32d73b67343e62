// Package selection produces the outstanding work sets for a pipeline run.
package selection

import "fmt"

// Error represents a failure to query outstanding work
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}
