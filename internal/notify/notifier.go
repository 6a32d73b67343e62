package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/matchday-agent/internal/types"
)

// DefaultBreakerThreshold is the number of consecutive failures that stop sends to a destination
const DefaultBreakerThreshold = 3

// FormatMessage renders the chat message for a result. Times are shown in UTC.
func FormatMessage(event types.Event, result types.EnrichmentResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*%s vs %s* (%s)\n\n",
		event.ParticipantA, event.ParticipantB, event.ScheduledTime.UTC().Format("Jan 02, 15:04")))
	sb.WriteString(fmt.Sprintf("*PICK:* %s\n", result.HumanSummary))
	sb.WriteString(fmt.Sprintf("*EDGE:* %s ⚡\n", result.Rationale))
	sb.WriteString(fmt.Sprintf("*KEY:* %s", strings.Join(result.SupportingFactors, ", ")))
	return sb.String()
}

// Notifier formats deliveries and sends them through a Sender, guarded by a breaker
type Notifier struct {
	sender      Sender
	destination string
	breaker     *Breaker
	logger      *logrus.Logger
}

// NewNotifier creates a notifier sending to destination. An empty destination
// defers to the sender's default.
func NewNotifier(sender Sender, destination string, breakerThreshold int, logger *logrus.Logger) *Notifier {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Notifier{
		sender:      sender,
		destination: destination,
		breaker:     NewBreaker(breakerThreshold, 0),
		logger:      logger,
	}
}

// BeginRun clears breaker state so each run starts with every destination closed
func (n *Notifier) BeginRun() {
	n.breaker.Reset()
}

// Notify delivers one result. Every failure is returned as a DeliveryError.
func (n *Notifier) Notify(ctx context.Context, d types.Delivery) error {
	dest := n.destination
	key := dest
	if key == "" {
		key = "(default)"
	}

	if err := n.breaker.Allow(key); err != nil {
		return &DeliveryError{Destination: key, Message: "skipped", Cause: err}
	}

	err := n.sender.Send(ctx, FormatMessage(d.Event, d.Result), dest)
	if err != nil {
		n.breaker.RecordFailure(key)
		var de *DeliveryError
		if !errors.As(err, &de) {
			err = &DeliveryError{Destination: key, Message: "send failed", Cause: err}
		}
		return err
	}

	n.breaker.RecordSuccess(key)
	n.logger.WithFields(logrus.Fields{
		"event_id":    d.Event.ExternalID,
		"destination": key,
	}).Debug("notification sent")
	return nil
}
