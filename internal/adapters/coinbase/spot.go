package coinbase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

const defaultSpotURL = "https://api.coinbase.com/v2/prices/BTC-USD/spot"

// Feed implementa ports.PriceFeed contra el endpoint público de spot de
// Coinbase. Sin auth; timeout corto porque bloquea el tick.
type Feed struct {
	http *http.Client
	url  string
}

// NewFeed crea un Feed contra la URL dada (BTC-USD spot si está vacía).
func NewFeed(url string) *Feed {
	if url == "" {
		url = defaultSpotURL
	}
	return &Feed{
		http: &http.Client{Timeout: 10 * time.Second},
		url:  url,
	}
}

type spotResponse struct {
	Data struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	} `json:"data"`
}

// Spot devuelve el último precio spot en dólares.
func (f *Feed) Spot(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return 0, fmt.Errorf("coinbase.Spot: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("coinbase.Spot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("coinbase.Spot: status %d", resp.StatusCode)
	}

	var out spotResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("coinbase.Spot: decode: %w", err)
	}

	px, err := strconv.ParseFloat(out.Data.Amount, 64)
	if err != nil || px <= 0 {
		return 0, fmt.Errorf("coinbase.Spot: bad amount %q", out.Data.Amount)
	}
	return px, nil
}
