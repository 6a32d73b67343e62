package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validResult() EnrichmentResult {
	return EnrichmentResult{
		EventExternalID:   "evt-1",
		PredictedOutcome:  OutcomeAWin,
		HumanSummary:      "Arsenal Win",
		Rationale:         "Home side unbeaten in ten.",
		SupportingFactors: []string{"form", "injuries"},
		Confidence:        ConfidenceMedium,
	}
}

func TestEnrichmentResult_Validate(t *testing.T) {
	r := validResult()
	assert.NoError(t, r.Validate())
}

func TestEnrichmentResult_Validate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *EnrichmentResult)
	}{
		{"unknown outcome", func(r *EnrichmentResult) { r.PredictedOutcome = "HOME_WIN" }},
		{"unknown confidence", func(r *EnrichmentResult) { r.Confidence = "High" }},
		{"one factor", func(r *EnrichmentResult) { r.SupportingFactors = []string{"form"} }},
		{"five factors", func(r *EnrichmentResult) { r.SupportingFactors = []string{"a", "b", "c", "d", "e"} }},
		{"empty factor", func(r *EnrichmentResult) { r.SupportingFactors = []string{"a", ""} }},
		{"missing summary", func(r *EnrichmentResult) { r.HumanSummary = "" }},
		{"missing event", func(r *EnrichmentResult) { r.EventExternalID = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validResult()
			tt.mutate(&r)
			assert.Error(t, r.Validate())
		})
	}
}
