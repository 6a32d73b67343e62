// Package oddsmath converts bookmaker prices into probabilities for prompt context.
package oddsmath

import (
	"fmt"
	"math"
)

// AmericanToDecimal converts American odds to decimal odds
// American +150 → Decimal 2.50
// American -150 → Decimal 1.67
func AmericanToDecimal(american float64) (float64, error) {
	if american > -100 && american < 100 {
		return 0, fmt.Errorf("invalid American odds %v: magnitude must be at least 100", american)
	}

	if american > 0 {
		return american/100.0 + 1.0, nil
	}
	return 100.0/(-american) + 1.0, nil
}

// AmericanToImpliedProbability converts American odds to the bookmaker's implied probability
// American -200 → 0.667
// American +200 → 0.333
func AmericanToImpliedProbability(american float64) (float64, error) {
	decimal, err := AmericanToDecimal(american)
	if err != nil {
		return 0, err
	}
	return 1.0 / decimal, nil
}

// RemoveVig normalizes implied probabilities so they sum to 1.0.
// Works for two-way and three-way (draw) markets.
func RemoveVig(probabilities []float64) ([]float64, error) {
	if len(probabilities) < 2 {
		return nil, fmt.Errorf("need at least 2 outcomes")
	}

	total := 0.0
	for _, p := range probabilities {
		if p <= 0 || p >= 1 {
			return nil, fmt.Errorf("all probabilities must be between 0 and 1")
		}
		total += p
	}

	fair := make([]float64, len(probabilities))
	for i, p := range probabilities {
		fair[i] = p / total
	}
	return fair, nil
}

// Overround returns the bookmaker margin as a percentage (104.76 → 4.76)
func Overround(probabilities []float64) float64 {
	total := 0.0
	for _, p := range probabilities {
		total += p
	}
	if total <= 1.0 {
		return 0
	}
	return (total - 1.0) * 100.0
}

// RoundPercent rounds a probability to a percentage with one decimal place
func RoundPercent(probability float64) float64 {
	return math.Round(probability*1000) / 10
}
