// Package eia fetches state-level retail energy prices from the public
// statistics API. Calls run behind a circuit breaker so a flapping upstream
// cannot stall the price sync loop.
package eia

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/n0hyd/energy-app-sub001/internal/domain"
	"github.com/n0hyd/energy-app-sub001/internal/metrics"
	"github.com/sony/gobreaker"
)

const requestTimeout = 30 * time.Second

// StatePrice is one normalized price row: the latest known price for a state.
type StatePrice struct {
	State  string
	Period string
	Price  float64
	Units  string
}

// dataset describes the per-utility API route and its row vocabulary.
type dataset struct {
	path   string
	params url.Values
}

var datasets = map[domain.Utility]dataset{
	domain.UtilityElectric: {
		path: "/electricity/retail-sales/data/",
		params: url.Values{
			"frequency":          {"monthly"},
			"data[0]":            {"price"},
			"facets[sectorid][]": {"COM"},
			"sort[0][column]":    {"period"},
			"sort[0][direction]": {"desc"},
			"offset":             {"0"},
			"length":             {"500"},
		},
	},
	domain.UtilityGas: {
		path: "/natural-gas/pri/sum/data/",
		params: url.Values{
			"frequency":          {"monthly"},
			"data[0]":            {"value"},
			"facets[process][]":  {"PG1"},
			"sort[0][column]":    {"period"},
			"sort[0][direction]": {"desc"},
			"offset":             {"0"},
			"length":             {"500"},
		},
	},
}

// seriesRow covers the field vocabulary of both dataset routes; the
// electricity series uses stateid/price/price-units, the gas series
// duoarea/value/units.
type seriesRow struct {
	Period     string   `json:"period"`
	StateID    string   `json:"stateid"`
	DuoArea    string   `json:"duoarea"`
	Price      *float64 `json:"price"`
	Value      *float64 `json:"value"`
	PriceUnits string   `json:"price-units"`
	Units      string   `json:"units"`
}

func (r seriesRow) state() string {
	if r.StateID != "" {
		return r.StateID
	}
	// Gas areas are prefixed: "SKS" is the state series for KS.
	if len(r.DuoArea) == 3 && r.DuoArea[0] == 'S' {
		return r.DuoArea[1:]
	}
	return ""
}

func (r seriesRow) price() *float64 {
	if r.Price != nil {
		return r.Price
	}
	return r.Value
}

func (r seriesRow) units() string {
	if r.PriceUnits != "" {
		return r.PriceUnits
	}
	return r.Units
}

type apiResponse struct {
	Response struct {
		Data []seriesRow `json:"data"`
	} `json:"response"`
}

// Client talks to the statistics API with an api_key query parameter.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
}

func NewClient(baseURL, apiKey string) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "eia",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 3 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed",
				"component", name,
				"from", from.String(),
				"to", to.String(),
			)
			metrics.CircuitBreakerStateChanges.WithLabelValues(name, to.String()).Inc()
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: requestTimeout},
		cb:         cb,
	}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// FetchStatePrices returns the latest price per state for the utility. Rows
// arrive newest first; the first row seen per state wins, with a period
// comparison as a guard against unsorted responses.
func (c *Client) FetchStatePrices(ctx context.Context, utility domain.Utility) ([]StatePrice, error) {
	ds, ok := datasets[utility]
	if !ok {
		return nil, fmt.Errorf("no dataset route for utility %q", utility)
	}

	result, err := c.cb.Execute(func() (any, error) {
		return c.fetch(ctx, utility, ds)
	})
	if err != nil {
		return nil, err
	}

	rows := result.([]seriesRow)
	return normalize(rows), nil
}

func (c *Client) fetch(ctx context.Context, utility domain.Utility, ds dataset) ([]seriesRow, error) {
	params := url.Values{}
	for key, values := range ds.params {
		params[key] = values
	}
	params.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+ds.path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create price request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.EIARequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.EIARequestsTotal.WithLabelValues(string(utility), "error").Inc()
		return nil, fmt.Errorf("failed to execute price request: %w", err)
	}
	defer resp.Body.Close()

	metrics.EIARequestsTotal.WithLabelValues(string(utility), strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("price API returned status %d", resp.StatusCode)
	}

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode price response: %w", err)
	}

	return parsed.Response.Data, nil
}

// normalize keeps the most recent period per state and drops rows without a
// usable state or price. Periods are YYYY-MM, so string comparison orders
// them correctly.
func normalize(rows []seriesRow) []StatePrice {
	latest := make(map[string]StatePrice)
	var order []string

	for _, row := range rows {
		state := row.state()
		price := row.price()
		if state == "" || price == nil || row.Period == "" {
			continue
		}

		existing, seen := latest[state]
		if seen && existing.Period >= row.Period {
			continue
		}
		if !seen {
			order = append(order, state)
		}
		latest[state] = StatePrice{
			State:  state,
			Period: row.Period,
			Price:  *price,
			Units:  row.units(),
		}
	}

	prices := make([]StatePrice, 0, len(order))
	for _, state := range order {
		prices = append(prices, latest[state])
	}
	return prices
}
