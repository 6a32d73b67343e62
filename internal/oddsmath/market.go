package oddsmath

// Market is one h2h price line with an optional draw
type Market struct {
	PriceA    float64
	PriceB    float64
	PriceDraw *float64
}

// Probabilities holds no-vig probabilities for each outcome. Draw is zero when the market has no draw.
type Probabilities struct {
	A         float64
	B         float64
	Draw      float64
	Overround float64
}

// FairProbabilities converts a market's American prices into no-vig probabilities
func FairProbabilities(m Market) (*Probabilities, error) {
	prices := []float64{m.PriceA, m.PriceB}
	if m.PriceDraw != nil {
		prices = append(prices, *m.PriceDraw)
	}

	implied := make([]float64, len(prices))
	for i, price := range prices {
		p, err := AmericanToImpliedProbability(price)
		if err != nil {
			return nil, err
		}
		implied[i] = p
	}

	fair, err := RemoveVig(implied)
	if err != nil {
		return nil, err
	}

	probs := &Probabilities{A: fair[0], B: fair[1], Overround: Overround(implied)}
	if len(fair) == 3 {
		probs.Draw = fair[2]
	}
	return probs, nil
}

// Movement is the change in fair probability between two observations of the same market
type Movement struct {
	A    float64
	B    float64
	Draw float64
}

// Shift computes how fair probabilities moved from previous to latest
func Shift(previous, latest Market) (*Movement, error) {
	prev, err := FairProbabilities(previous)
	if err != nil {
		return nil, err
	}
	cur, err := FairProbabilities(latest)
	if err != nil {
		return nil, err
	}
	return &Movement{A: cur.A - prev.A, B: cur.B - prev.B, Draw: cur.Draw - prev.Draw}, nil
}
