// Package provider implements external rate providers for fetching currency exchange rates.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNoProviderAvailable is returned when every provider in the chain failed.
var ErrNoProviderAvailable = errors.New("no rate provider available")

const (
	// DefaultTimeout bounds a single provider attempt.
	DefaultTimeout = 10 * time.Second

	dateLayout = "2006-01-02"
)

// CurrencyPair is a normalized (uppercase) from/to pair.
type CurrencyPair struct {
	From string
	To   string
}

func (p CurrencyPair) String() string { return p.From + "/" + p.To }

// RateQuote is a mid-rate as reported by one provider.
type RateQuote struct {
	Mid      float64
	Date     string
	Provider string
}

// RatesProvider defines an interface for fetching exchange rates from external sources.
type RatesProvider interface {
	Name() string
	GetRate(ctx context.Context, pair CurrencyPair) (RateQuote, error)
}

func today() string {
	return time.Now().UTC().Format(dateLayout)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// getJSON performs a GET and decodes a 2xx JSON body into out.
func getJSON(ctx context.Context, client *http.Client, name, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("%s API request creation failed: %w", name, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s API request failed: %w", name, err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s API returned status %d: %s", name, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s API response: %w", name, err)
	}
	return nil
}
