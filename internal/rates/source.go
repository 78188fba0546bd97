// Package rates acquires, caches and applies currency exchange rates.
//
// A Table maps currency codes to multipliers relative to one base currency:
// table["EUR"] = 0.85 under base USD means 1 USD buys 0.85 EUR.
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
)

// DefaultAPIURL is the public rate-table endpoint; the base currency code is
// appended to the path.
const DefaultAPIURL = "https://api.exchangerate-api.com/v4/latest/"

// ErrSourceUnavailable covers every way a fetch can fail: network error,
// non-2xx status, or a payload without a usable rates object. Unknown
// currency codes are not an error here; they are handled by the converter.
var ErrSourceUnavailable = errors.New("rate source unavailable")

// Table maps uppercase currency codes to multipliers for one base currency.
type Table map[string]decimal.Decimal

// Lookup returns the multiplier for a code, case-insensitively.
func (t Table) Lookup(code string) (decimal.Decimal, bool) {
	rate, ok := t[core.NormalizeCurrency(code)]
	return rate, ok
}

// Source fetches a rate table for a base currency. A single attempt per
// call, no retries; failures surface as ErrSourceUnavailable.
type Source interface {
	Fetch(ctx context.Context, base string) (Table, error)
}

// HTTPSource fetches rate tables over HTTP.
type HTTPSource struct {
	client  *http.Client
	baseURL string
}

// NewHTTPSource creates a source against the given endpoint. A non-positive
// timeout keeps the transport default; a bounded timeout is recommended so
// a hung fetch degrades to the fallback table instead of blocking writes.
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	client := &http.Client{}
	if timeout > 0 {
		client.Timeout = timeout
	}
	return &HTTPSource{client: client, baseURL: baseURL}
}

func (s *HTTPSource) Fetch(ctx context.Context, base string) (Table, error) {
	url := s.baseURL + core.NormalizeCurrency(base)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrSourceUnavailable, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrSourceUnavailable, resp.StatusCode)
	}

	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode payload: %v", ErrSourceUnavailable, err)
	}
	if len(payload.Rates) == 0 {
		return nil, fmt.Errorf("%w: payload has no rates", ErrSourceUnavailable)
	}

	table := make(Table, len(payload.Rates))
	for code, rate := range payload.Rates {
		table[core.NormalizeCurrency(code)] = decimal.NewFromFloat(rate)
	}
	return table, nil
}
