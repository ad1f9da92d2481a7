package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RatesTableProviderName identifies the rates-table adapter.
const RatesTableProviderName = "rates_table"

var _ RatesProvider = (*RatesTableProvider)(nil)

// RatesTableProvider fetches rates from a Frankfurter style /latest endpoint
// that answers with a table of rates keyed by target currency.
type RatesTableProvider struct {
	baseURL string
	client  *http.Client
}

// NewRatesTableProvider creates a new RatesTableProvider.
func NewRatesTableProvider(baseURL string, timeout time.Duration) *RatesTableProvider {
	if baseURL == "" {
		baseURL = "https://api.frankfurter.app"
	}
	return &RatesTableProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  newHTTPClient(timeout),
	}
}

type ratesTableResponse struct {
	Amount float64            `json:"amount"`
	Base   string             `json:"base"`
	Date   string             `json:"date"`
	Rates  map[string]float64 `json:"rates"`
}

// Name returns the adapter name.
func (p *RatesTableProvider) Name() string { return RatesTableProviderName }

// GetRate retrieves the exchange rate between the pair's currencies.
func (p *RatesTableProvider) GetRate(ctx context.Context, pair CurrencyPair) (RateQuote, error) {
	q := url.Values{}
	q.Set("from", pair.From)
	q.Set("to", pair.To)

	var result ratesTableResponse
	if err := getJSON(ctx, p.client, p.Name(), p.baseURL+"/latest?"+q.Encode(), &result); err != nil {
		return RateQuote{}, err
	}

	rate, ok := result.Rates[pair.To]
	if !ok {
		return RateQuote{}, fmt.Errorf("no rate for %s in %s response", pair.To, p.Name())
	}

	date := result.Date
	if date == "" {
		date = today()
	}
	return RateQuote{Mid: rate, Date: date, Provider: p.Name()}, nil
}
