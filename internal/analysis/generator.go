package analysis

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/matchday-agent/internal/llm"
	"github.com/jonathan/matchday-agent/internal/schemas"
	"github.com/jonathan/matchday-agent/internal/types"
)

// Input is everything the generator sees for one event
type Input struct {
	Event types.Event
	// History is the event's snapshots, newest first
	History  []types.AttributeSnapshot
	Research string
}

// rawResult is the model's JSON document before mapping onto the domain enums
type rawResult struct {
	Prediction     string   `json:"prediction" validate:"required"`
	PredictionText string   `json:"prediction_text" validate:"required"`
	Confidence     string   `json:"confidence" validate:"required"`
	EdgeReason     string   `json:"edge_reason" validate:"required"`
	KeyFactors     []string `json:"key_factors" validate:"min=2,max=4,dive,required"`
}

// Generator produces enrichment results
type Generator struct {
	client   llm.Client
	tier     llm.ModelTier
	prompt   PromptConfig
	validate *validator.Validate
	logger   *logrus.Logger
}

// NewGenerator creates a Generator
func NewGenerator(client llm.Client, tier llm.ModelTier, prompt PromptConfig, logger *logrus.Logger) *Generator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if tier == "" {
		tier = llm.TierStandard
	}
	return &Generator{
		client:   client,
		tier:     tier,
		prompt:   prompt,
		validate: validator.New(),
		logger:   logger,
	}
}

// Generate asks the model for a prediction and maps it onto an EnrichmentResult.
// Any failure is a GenerationError; the caller skips the event for this run.
func (g *Generator) Generate(ctx context.Context, in Input) (*types.EnrichmentResult, error) {
	eventID := in.Event.ExternalID

	prompt, err := BuildPrompt(g.prompt, in.Event, in.History, in.Research)
	if err != nil {
		return nil, &GenerationError{EventID: eventID, Message: "failed to build prompt", Cause: err, BeforeCall: true}
	}

	responseText, err := g.client.GenerateJSON(ctx, prompt, g.tier)
	if err != nil {
		return nil, &GenerationError{EventID: eventID, Message: "failed to generate content from LLM", Cause: err}
	}

	result, err := g.parse(eventID, responseText)
	if err != nil {
		return nil, err
	}
	result.RawContext = in.Research

	g.logger.WithFields(logrus.Fields{
		"event_id":   eventID,
		"prediction": result.PredictedOutcome,
		"confidence": result.Confidence,
	}).Debug("generated enrichment")
	return result, nil
}

func (g *Generator) parse(eventID, responseText string) (*types.EnrichmentResult, error) {
	if err := schemas.Validate(schemas.AnalysisOutput, responseText); err != nil {
		return nil, &GenerationError{EventID: eventID, Message: "response does not match schema", Cause: err}
	}

	var raw rawResult
	if err := json.Unmarshal([]byte(responseText), &raw); err != nil {
		return nil, &GenerationError{EventID: eventID, Message: "failed to parse JSON response", Cause: err}
	}
	if err := g.validate.Struct(&raw); err != nil {
		return nil, &GenerationError{EventID: eventID, Message: "response failed validation", Cause: err}
	}

	outcome, ok := parseOutcome(raw.Prediction)
	if !ok {
		return nil, &GenerationError{EventID: eventID, Message: "unknown prediction " + raw.Prediction}
	}

	factors := make([]string, len(raw.KeyFactors))
	for i, f := range raw.KeyFactors {
		factors[i] = strings.TrimSpace(f)
	}

	result := &types.EnrichmentResult{
		EventExternalID:   eventID,
		PredictedOutcome:  outcome,
		HumanSummary:      strings.TrimSpace(raw.PredictionText),
		Rationale:         strings.TrimSpace(raw.EdgeReason),
		SupportingFactors: factors,
		Confidence:        types.Confidence(strings.ToUpper(strings.TrimSpace(raw.Confidence))),
	}
	if err := result.Validate(); err != nil {
		return nil, &GenerationError{EventID: eventID, Message: "result failed validation", Cause: err}
	}
	return result, nil
}

func parseOutcome(s string) (types.Outcome, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "home_win", "a_win":
		return types.OutcomeAWin, true
	case "away_win", "b_win":
		return types.OutcomeBWin, true
	case "draw":
		return types.OutcomeDraw, true
	}
	return "", false
}
