package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultOddsAPIBaseURL is the-odds-api v4 endpoint root
const DefaultOddsAPIBaseURL = "https://api.the-odds-api.com"

// OddsAPIConfig configures the-odds-api client
type OddsAPIConfig struct {
	BaseURL    string
	APIKey     string
	Regions    string
	Bookmakers []string
	// SportKeys maps a category name to the provider's sport key (e.g. "EPL" → "soccer_epl")
	SportKeys map[string]string
	Timeout   time.Duration
}

// OddsAPIFetcher fetches h2h odds from the-odds-api
type OddsAPIFetcher struct {
	config     OddsAPIConfig
	httpClient *http.Client
}

// NewOddsAPIFetcher creates a fetcher with defaults applied
func NewOddsAPIFetcher(config OddsAPIConfig) *OddsAPIFetcher {
	if config.BaseURL == "" {
		config.BaseURL = DefaultOddsAPIBaseURL
	}
	if config.Regions == "" {
		config.Regions = "eu"
	}
	if len(config.Bookmakers) == 0 {
		config.Bookmakers = []string{"unibet", "pinnacle"}
	}
	if config.Timeout <= 0 {
		config.Timeout = 20 * time.Second
	}
	return &OddsAPIFetcher{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

type oddsAPIOutcome struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type oddsAPIMarket struct {
	Key      string           `json:"key"`
	Outcomes []oddsAPIOutcome `json:"outcomes"`
}

type oddsAPIBookmaker struct {
	Key     string          `json:"key"`
	Title   string          `json:"title"`
	Markets []oddsAPIMarket `json:"markets"`
}

type oddsAPIEvent struct {
	ID           string             `json:"id"`
	SportKey     string             `json:"sport_key"`
	CommenceTime time.Time          `json:"commence_time"`
	HomeTeam     string             `json:"home_team"`
	AwayTeam     string             `json:"away_team"`
	Bookmakers   []oddsAPIBookmaker `json:"bookmakers"`
}

// FetchCurrentAttributes fetches the current fixtures and h2h prices for a category.
// Any transport, status or decoding failure is returned as a TransientError.
func (f *OddsAPIFetcher) FetchCurrentAttributes(ctx context.Context, category string) ([]Observation, error) {
	sportKey, ok := f.config.SportKeys[category]
	if !ok {
		return nil, &TransientError{Category: category, Message: "no sport key configured"}
	}

	params := url.Values{}
	params.Set("apiKey", f.config.APIKey)
	params.Set("regions", f.config.Regions)
	params.Set("markets", "h2h")
	params.Set("oddsFormat", "american")
	params.Set("bookmakers", strings.Join(f.config.Bookmakers, ","))
	endpoint := fmt.Sprintf("%s/v4/sports/%s/odds?%s",
		strings.TrimRight(f.config.BaseURL, "/"), url.PathEscape(sportKey), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &TransientError{Category: category, Message: "creating request", Cause: err}
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &TransientError{Category: category, Message: "making request", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &TransientError{
			Category: category,
			Message:  fmt.Sprintf("odds API error: status=%d, body=%s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	var events []oddsAPIEvent
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, &TransientError{Category: category, Message: "decoding response", Cause: err}
	}

	observations := make([]Observation, 0, len(events))
	for _, e := range events {
		if e.SportKey != sportKey {
			continue
		}
		observations = append(observations, Observation{
			EventKey:      e.ID,
			Category:      category,
			ParticipantA:  e.HomeTeam,
			ParticipantB:  e.AwayTeam,
			ScheduledTime: e.CommenceTime.UTC(),
			Prices:        h2hPrices(e),
		})
	}
	return observations, nil
}

// h2hPrices takes the first bookmaker carrying an h2h market.
// Outcomes named after the home or away side map to A and B, anything else is the draw.
func h2hPrices(e oddsAPIEvent) *Prices {
	for _, b := range e.Bookmakers {
		for _, m := range b.Markets {
			if m.Key != "h2h" {
				continue
			}
			p := &Prices{Source: b.Title}
			for _, o := range m.Outcomes {
				switch o.Name {
				case e.HomeTeam:
					p.A = o.Price
				case e.AwayTeam:
					p.B = o.Price
				default:
					draw := o.Price
					p.Draw = &draw
				}
			}
			return p
		}
	}
	return nil
}
