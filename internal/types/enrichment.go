package types

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Outcome is the predicted result of a fixture
type Outcome string

// Outcome values
const (
	OutcomeAWin Outcome = "A_WIN"
	OutcomeBWin Outcome = "B_WIN"
	OutcomeDraw Outcome = "DRAW"
)

// Confidence is the generator's self-reported confidence level
type Confidence string

// Confidence values
const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// EnrichmentResult is the generated analysis for one event.
// A notification is owed while Delivered is false and the result is not Stale.
type EnrichmentResult struct {
	ID                int64      `json:"id,omitempty"`
	EventExternalID   string     `json:"event_external_id" validate:"required"`
	PredictedOutcome  Outcome    `json:"predicted_outcome" validate:"required,oneof=A_WIN B_WIN DRAW"`
	HumanSummary      string     `json:"human_summary" validate:"required"`
	Rationale         string     `json:"rationale" validate:"required"`
	SupportingFactors []string   `json:"supporting_factors" validate:"min=2,max=4,dive,required"`
	Confidence        Confidence `json:"confidence" validate:"required,oneof=HIGH MEDIUM LOW"`
	RawContext        string     `json:"raw_context,omitempty"`
	Delivered         bool       `json:"delivered"`
	Stale             bool       `json:"stale,omitempty"`
	DeliveredAt       *time.Time `json:"delivered_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// Validate checks the result's enums and factor count using the validator.
func (r *EnrichmentResult) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
