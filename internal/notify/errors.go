// Package notify formats enrichment results and delivers them to a chat destination.
package notify

import (
	"errors"
	"fmt"
)

// ErrCircuitOpen is returned when a destination has failed too often in this run
var ErrCircuitOpen = errors.New("circuit breaker is open")

// DeliveryError means a message could not be delivered. The result stays
// undelivered and is retried on the next run.
type DeliveryError struct {
	Destination string
	Message     string
	Cause       error
}

func (e *DeliveryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("delivery to %s failed: %s: %v", e.Destination, e.Message, e.Cause)
	}
	return fmt.Sprintf("delivery to %s failed: %s", e.Destination, e.Message)
}

func (e *DeliveryError) Unwrap() error {
	return e.Cause
}
