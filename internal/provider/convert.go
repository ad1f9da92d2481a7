package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ConvertProviderName identifies the convert-style adapter.
const ConvertProviderName = "convert"

var _ RatesProvider = (*ConvertProvider)(nil)

// ConvertProvider fetches rates from an exchangerate.host style /convert endpoint.
type ConvertProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewConvertProvider creates a ConvertProvider. apiKey is optional.
func NewConvertProvider(baseURL, apiKey string, timeout time.Duration) *ConvertProvider {
	if baseURL == "" {
		baseURL = "https://api.exchangerate.host"
	}
	return &ConvertProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  newHTTPClient(timeout),
	}
}

type convertResponse struct {
	Success *bool     `json:"success"`
	Result  flexFloat `json:"result"`
	Date    string    `json:"date"`
}

// Name returns the adapter name.
func (p *ConvertProvider) Name() string { return ConvertProviderName }

// GetRate fetches the mid-rate for pair.
func (p *ConvertProvider) GetRate(ctx context.Context, pair CurrencyPair) (RateQuote, error) {
	q := url.Values{}
	q.Set("from", pair.From)
	q.Set("to", pair.To)
	if p.apiKey != "" {
		q.Set("access_key", p.apiKey)
	}

	var result convertResponse
	if err := getJSON(ctx, p.client, p.Name(), p.baseURL+"/convert?"+q.Encode(), &result); err != nil {
		return RateQuote{}, err
	}
	// A positive result is used even when success is false.
	if result.Result <= 0 {
		if result.Success != nil && !*result.Success {
			return RateQuote{}, fmt.Errorf("%s API returned success=false for %s", p.Name(), pair)
		}
		return RateQuote{}, fmt.Errorf("no result for %s in %s response", pair, p.Name())
	}

	date := result.Date
	if date == "" {
		date = today()
	}
	return RateQuote{Mid: float64(result.Result), Date: date, Provider: p.Name()}, nil
}
