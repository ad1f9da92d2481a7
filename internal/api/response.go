// Package api implements HTTP handlers for the exchange quote service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"exchangeservice/internal/auth"
	"exchangeservice/internal/keyset"
	"exchangeservice/internal/provider"
	"exchangeservice/internal/service"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error" example:"invalid_token"`
	Message string `json:"message" example:"Invalid or expired token"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="exchange"`)
	}
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// classifyError maps a quote error onto status, machine code and client message.
func classifyError(err error) (status int, code, message string) {
	switch {
	case errors.Is(err, auth.ErrConfiguration),
		errors.Is(err, keyset.ErrNotConfigured),
		errors.Is(err, service.ErrInvalidSpread):
		return http.StatusInternalServerError, "configuration_error", "Service is misconfigured"
	case errors.Is(err, auth.ErrMissingCredential):
		return http.StatusUnauthorized, "missing_credential", "Missing id-account header or bearer token"
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid_token", "Invalid or expired token"
	case errors.Is(err, auth.ErrMissingAccountIdentifier):
		return http.StatusUnauthorized, "missing_account_id", "Token does not identify an account"
	case errors.Is(err, auth.ErrMalformedClaims):
		return http.StatusBadRequest, "malformed_claims", "Account claim has an unsupported type"
	case errors.Is(err, service.ErrInvalidPairFormat):
		return http.StatusBadRequest, "invalid_currency", "Currency codes must be 3 letters"
	case errors.Is(err, service.ErrUnsupportedCurrency):
		return http.StatusBadRequest, "unsupported_currency", "Currency is not supported"
	case errors.Is(err, keyset.ErrKeySetUnavailable):
		return http.StatusBadGateway, "key_set_unavailable", "Signing keys could not be fetched"
	case errors.Is(err, provider.ErrNoProviderAvailable):
		return http.StatusBadGateway, "no_provider_available", "No exchange rate provider answered"
	case errors.Is(err, service.ErrInvalidRate):
		return http.StatusBadGateway, "invalid_rate", "Exchange rate provider returned an invalid rate"
	default:
		return http.StatusInternalServerError, "internal_error", "Internal error"
	}
}
