package service

import (
	"errors"
	"strings"

	"exchangeservice/internal/provider"
)

// ErrInvalidPairFormat indicates the currency pair format is invalid.
var ErrInvalidPairFormat = errors.New("invalid currency code format")

// ErrInvalidRate indicates the provider returned an unusable mid-rate.
var ErrInvalidRate = errors.New("invalid mid-rate")

// ErrInvalidSpread indicates the configured spread cannot be applied.
var ErrInvalidSpread = errors.New("invalid spread")

func normalizePair(from, to string) (provider.CurrencyPair, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if !IsValidCurrencyCode(from) || !IsValidCurrencyCode(to) {
		return provider.CurrencyPair{}, ErrInvalidPairFormat
	}
	return provider.CurrencyPair{From: strings.ToUpper(from), To: strings.ToUpper(to)}, nil
}

// IsValidCurrencyCode checks whether a string is a valid 3-letter currency code.
func IsValidCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	code = strings.ToUpper(code)
	for _, c := range code {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}
