package types

import (
	"time"

	"github.com/google/uuid"
)

// Run status values recorded on RunSummary
const (
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// RunSummary is the per-run observability record. The pipeline writes it once and never reads it back.
type RunSummary struct {
	RunID             uuid.UUID     `json:"run_id"`
	Status            string        `json:"status"`
	EventsProcessed   int           `json:"events_processed"`
	Successes         int           `json:"successes"`
	Failures          int           `json:"failures"`
	NotificationsSent int           `json:"notifications_sent"`
	DeliveryFailures  int           `json:"delivery_failures"`
	ExternalCalls     int           `json:"external_calls"`
	CacheHits         int           `json:"cache_hits"`
	PeriodIDs         []int64       `json:"period_ids"`
	ErrorMessage      string        `json:"error_message,omitempty"`
	StartedAt         time.Time     `json:"started_at"`
	Duration          time.Duration `json:"duration"`
}
