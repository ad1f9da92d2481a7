package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// PairKeyedProviderName identifies the pair-keyed adapter.
const PairKeyedProviderName = "pair_keyed"

var _ RatesProvider = (*PairKeyedProvider)(nil)

// PairKeyedProvider fetches rates from an AwesomeAPI style /last/{FROM}-{TO}
// endpoint whose body is keyed by the concatenated pair, e.g. "USDBRL".
type PairKeyedProvider struct {
	baseURL string
	client  *http.Client
}

// NewPairKeyedProvider creates a new PairKeyedProvider.
func NewPairKeyedProvider(baseURL string, timeout time.Duration) *PairKeyedProvider {
	if baseURL == "" {
		baseURL = "https://economia.awesomeapi.com.br"
	}
	return &PairKeyedProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  newHTTPClient(timeout),
	}
}

type pairKeyedQuote struct {
	Bid        flexFloat `json:"bid"`
	CreateDate string    `json:"create_date"`
	Timestamp  flexText  `json:"timestamp"`
}

// flexFloat accepts a JSON number or a numeric string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("parse number %q: %w", s, err)
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// flexText accepts a JSON string or number and keeps its textual form.
type flexText string

func (t *flexText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = flexText(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	*t = flexText(data)
	return nil
}

// Name returns the adapter name.
func (p *PairKeyedProvider) Name() string { return PairKeyedProviderName }

// GetRate fetches the bid for pair.
func (p *PairKeyedProvider) GetRate(ctx context.Context, pair CurrencyPair) (RateQuote, error) {
	reqURL := fmt.Sprintf("%s/last/%s-%s", p.baseURL, url.PathEscape(pair.From), url.PathEscape(pair.To))

	var result map[string]json.RawMessage
	if err := getJSON(ctx, p.client, p.Name(), reqURL, &result); err != nil {
		return RateQuote{}, err
	}

	key := pair.From + pair.To
	raw, ok := result[key]
	if !ok {
		return RateQuote{}, fmt.Errorf("no entry %s in %s response", key, p.Name())
	}
	var item pairKeyedQuote
	if err := json.Unmarshal(raw, &item); err != nil {
		return RateQuote{}, fmt.Errorf("failed to decode %s entry %s: %w", p.Name(), key, err)
	}
	if item.Bid <= 0 {
		return RateQuote{}, fmt.Errorf("non-positive bid for %s in %s response", key, p.Name())
	}

	date := item.CreateDate
	if date == "" {
		date = string(item.Timestamp)
	}
	if date == "" {
		date = today()
	}
	return RateQuote{Mid: float64(item.Bid), Date: date, Provider: p.Name()}, nil
}
