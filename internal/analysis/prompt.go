package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jonathan/matchday-agent/internal/oddsmath"
	"github.com/jonathan/matchday-agent/internal/prompts"
	"github.com/jonathan/matchday-agent/internal/types"
)

// PromptConfig carries the analyst persona and weighting supplied by configuration
type PromptConfig struct {
	Persona string
	// Priorities maps a factor name to its weight. Higher weights are listed first.
	Priorities   map[string]int
	Instructions string
}

// DefaultPromptConfig returns the embedded persona and instructions with no priorities
func DefaultPromptConfig() PromptConfig {
	return PromptConfig{
		Persona:      prompts.MustGet(prompts.AnalysisFile, "default-persona"),
		Instructions: prompts.MustGet(prompts.AnalysisFile, "default-instructions"),
	}
}

// orderedPriorities lists priority names by descending weight, ties by name,
// with underscores shown as spaces
func orderedPriorities(priorities map[string]int) []string {
	names := make([]string, 0, len(priorities))
	for name := range priorities {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		wi, wj := priorities[names[i]], priorities[names[j]]
		if wi != wj {
			return wi > wj
		}
		return names[i] < names[j]
	})
	for i, name := range names {
		names[i] = strings.ReplaceAll(name, "_", " ")
	}
	return names
}

// BuildPrompt renders the analysis prompt. history is newest first.
func BuildPrompt(cfg PromptConfig, event types.Event, history []types.AttributeSnapshot, research string) (string, error) {
	persona := cfg.Persona
	if persona == "" {
		persona = prompts.MustGet(prompts.AnalysisFile, "default-persona")
	}
	instructions := cfg.Instructions
	if instructions == "" {
		instructions = prompts.MustGet(prompts.AnalysisFile, "default-instructions")
	}

	var priorities string
	if names := orderedPriorities(cfg.Priorities); len(names) > 0 {
		p, err := prompts.Render(prompts.AnalysisFile, "priorities", map[string]string{
			"List": strings.Join(names, ", "),
		})
		if err != nil {
			return "", err
		}
		priorities = p
	}

	odds, err := oddsSection(event, history)
	if err != nil {
		return "", err
	}

	return prompts.Render(prompts.AnalysisFile, "match-analysis", map[string]string{
		"Persona":      persona,
		"Home":         event.ParticipantA,
		"Away":         event.ParticipantB,
		"Kickoff":      event.ScheduledTime.UTC().Format("Mon Jan 2 2006, 15:04 MST"),
		"Odds":         odds,
		"Research":     research,
		"Priorities":   priorities,
		"Instructions": instructions,
	})
}

func oddsSection(event types.Event, history []types.AttributeSnapshot) (string, error) {
	if len(history) == 0 {
		return prompts.Get(prompts.AnalysisFile, "no-odds")
	}

	latest := history[0]
	latestMarket := marketOf(latest)
	current := map[string]string{
		"Source":    latest.SourceLabel,
		"Home":      event.ParticipantA,
		"Away":      event.ParticipantB,
		"PriceA":    formatPrice(latest.PriceA),
		"PriceB":    formatPrice(latest.PriceB),
		"PriceDraw": "n/a",
		"ProbA":     "?",
		"ProbB":     "?",
		"ProbDraw":  "?",
		"Margin":    "?",
	}
	if latest.PriceDraw != nil {
		current["PriceDraw"] = formatPrice(*latest.PriceDraw)
	}
	if probs, err := oddsmath.FairProbabilities(latestMarket); err == nil {
		current["ProbA"] = formatPercent(probs.A)
		current["ProbB"] = formatPercent(probs.B)
		if latest.PriceDraw != nil {
			current["ProbDraw"] = formatPercent(probs.Draw)
		}
		current["Margin"] = fmt.Sprintf("%.1f", probs.Overround)
	}

	section, err := prompts.Render(prompts.AnalysisFile, "current-odds", current)
	if err != nil {
		return "", err
	}
	if len(history) < 2 {
		return section, nil
	}

	prev := history[1]
	previous := map[string]string{
		"PriceA":    formatPrice(prev.PriceA),
		"PriceB":    formatPrice(prev.PriceB),
		"PriceDraw": "n/a",
		"ShiftA":    "?",
		"ShiftB":    "?",
		"ShiftDraw": "?",
	}
	if prev.PriceDraw != nil {
		previous["PriceDraw"] = formatPrice(*prev.PriceDraw)
	}
	if move, err := oddsmath.Shift(marketOf(prev), latestMarket); err == nil {
		previous["ShiftA"] = formatShift(move.A)
		previous["ShiftB"] = formatShift(move.B)
		previous["ShiftDraw"] = formatShift(move.Draw)
	}

	movement, err := prompts.Render(prompts.AnalysisFile, "previous-odds", previous)
	if err != nil {
		return "", err
	}
	return section + "\n\n" + movement, nil
}

func marketOf(s types.AttributeSnapshot) oddsmath.Market {
	return oddsmath.Market{PriceA: s.PriceA, PriceB: s.PriceB, PriceDraw: s.PriceDraw}
}

// formatPrice renders an American price with its sign, e.g. +240 or -120
func formatPrice(p float64) string {
	if p > 0 {
		return fmt.Sprintf("+%g", p)
	}
	return fmt.Sprintf("%g", p)
}

func formatPercent(p float64) string {
	return fmt.Sprintf("%.1f", oddsmath.RoundPercent(p))
}

func formatShift(d float64) string {
	return fmt.Sprintf("%+.1f", d*100)
}
