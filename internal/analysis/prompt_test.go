package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/matchday-agent/internal/types"
)

func snapshot(a, b float64, draw *float64, observedAt time.Time) types.AttributeSnapshot {
	return types.AttributeSnapshot{
		EventExternalID: "e1",
		SourceLabel:     "Pinnacle",
		PriceA:          a,
		PriceB:          b,
		PriceDraw:       draw,
		ObservedAt:      observedAt,
	}
}

func TestOrderedPriorities(t *testing.T) {
	got := orderedPriorities(map[string]int{
		"team_news":    3,
		"recent_form":  5,
		"odds_value":   3,
		"head_to_head": 1,
	})
	assert.Equal(t, []string{"recent form", "odds value", "team news", "head to head"}, got)
	assert.Empty(t, orderedPriorities(nil))
}

func TestBuildPrompt_NoOdds(t *testing.T) {
	prompt, err := BuildPrompt(PromptConfig{}, testEvent, nil, "research text")
	require.NoError(t, err)

	assert.Contains(t, prompt, "No odds data available for this match.")
	assert.Contains(t, prompt, "**Match:** Arsenal vs Chelsea (Sat Aug 16 2025, 14:00 UTC)")
	assert.Contains(t, prompt, "data-driven football betting analyst")
	assert.Contains(t, prompt, "research text")
	assert.NotContains(t, prompt, "{{.")
	assert.NotContains(t, prompt, "priorities, in order")
}

func TestBuildPrompt_CurrentOddsOnly(t *testing.T) {
	history := []types.AttributeSnapshot{snapshot(100, 100, nil, time.Now())}

	prompt, err := BuildPrompt(PromptConfig{}, testEvent, history, "")
	require.NoError(t, err)

	assert.Contains(t, prompt, "- Bookmaker: Pinnacle")
	assert.Contains(t, prompt, "- Home Win (Arsenal): +100 (50.0%)")
	assert.Contains(t, prompt, "- Draw: n/a (?%)")
	assert.Contains(t, prompt, "- Away Win (Chelsea): +100 (50.0%)")
	assert.Contains(t, prompt, "- Bookmaker margin: 0.0%")
	assert.NotContains(t, prompt, "Previous Betting Odds")
}

func TestBuildPrompt_Movement(t *testing.T) {
	draw := 240.0
	prevDraw := 250.0
	history := []types.AttributeSnapshot{
		snapshot(-120, 320, &draw, time.Date(2025, 8, 15, 12, 0, 0, 0, time.UTC)),
		snapshot(-110, 300, &prevDraw, time.Date(2025, 8, 14, 12, 0, 0, 0, time.UTC)),
	}

	prompt, err := BuildPrompt(PromptConfig{
		Persona:      "You are a cautious analyst.",
		Priorities:   map[string]int{"injuries": 2, "recent_form": 1},
		Instructions: "Keep it short.",
	}, testEvent, history, "")
	require.NoError(t, err)

	assert.Contains(t, prompt, "You are a cautious analyst.")
	assert.Contains(t, prompt, "in order: injuries, recent form.")
	assert.Contains(t, prompt, "Keep it short.")
	assert.Contains(t, prompt, "- Home Win (Arsenal): -120")
	assert.Contains(t, prompt, "- Draw: +240")
	assert.Contains(t, prompt, "Previous Betting Odds")
	assert.Contains(t, prompt, "- Home Win: -110")
	assert.Contains(t, prompt, "- Draw: +250")
	assert.Contains(t, prompt, "home +")
	assert.NotContains(t, prompt, "{{.")
}

func TestBuildPrompt_InvalidPricesStillRender(t *testing.T) {
	history := []types.AttributeSnapshot{snapshot(50, 100, nil, time.Now())}

	prompt, err := BuildPrompt(PromptConfig{}, testEvent, history, "")
	require.NoError(t, err)
	assert.Contains(t, prompt, "- Home Win (Arsenal): +50 (?%)")
	assert.Contains(t, prompt, "- Bookmaker margin: ?%")
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "+240", formatPrice(240))
	assert.Equal(t, "-120", formatPrice(-120))
	assert.Equal(t, "+102.5", formatPrice(102.5))
}

func TestFormatShift(t *testing.T) {
	assert.Equal(t, "+1.5", formatShift(0.015))
	assert.Equal(t, "-2.0", formatShift(-0.02))
	assert.Equal(t, "+0.0", formatShift(0))
}
