package service

import (
	"errors"
	"strings"
)

// ErrUnsupportedCurrency is returned when a currency is not in the allow-list.
var ErrUnsupportedCurrency = errors.New("unsupported currency")

// Validator defines the interface for currency validation.
type Validator interface {
	Validate(code string) error
	IsSupported(code string) bool
}

type validator struct {
	allowed map[string]struct{}
}

// NewValidator creates a currency validator. An empty allow-list accepts
// every well-formed code.
func NewValidator(allowed ...string) Validator {
	v := &validator{}
	for _, code := range allowed {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		if v.allowed == nil {
			v.allowed = make(map[string]struct{}, len(allowed))
		}
		v.allowed[code] = struct{}{}
	}
	return v
}

// Validate checks if the currency code is supported (case-insensitive).
func (v *validator) Validate(code string) error {
	if v.IsSupported(code) {
		return nil
	}
	return ErrUnsupportedCurrency
}

// IsSupported returns true if the currency code is supported (case-insensitive).
func (v *validator) IsSupported(code string) bool {
	if v.allowed == nil {
		return true
	}
	_, ok := v.allowed[strings.ToUpper(code)]
	return ok
}
