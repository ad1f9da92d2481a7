package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"exchangeservice/internal/api/middleware"
	"exchangeservice/internal/auth"
	"exchangeservice/internal/service"
)

const (
	headerAccountID     = "id-account"
	headerAuthorization = "Authorization"
	headerRateProvider  = "X-Rate-Provider"
	headerRateDate      = "X-Rate-Date"
)

// ExchangeResponse represents a priced quote
type ExchangeResponse struct {
	Sell      float64 `json:"sell" example:"5.226"`
	Buy       float64 `json:"buy" example:"5.174"`
	Date      string  `json:"date" example:"2025-10-22T12:00:00.123456Z"`
	AccountID string  `json:"id-account" example:"user-123"`
}

// HandleGetExchange godoc
// @Summary Get a buy/sell quote for a currency pair
// @Description Authenticates the caller through the id-account gateway header or a bearer token, fetches the mid-rate from the first healthy provider and applies the configured spread.
// @Tags exchange
// @Produce json
// @Param from path string true "Source currency code (3 letters)" minlength(3) maxlength(3)
// @Param to path string true "Target currency code (3 letters)" minlength(3) maxlength(3)
// @Param id-account header string false "Account identifier set by a trusted gateway"
// @Param Authorization header string false "Bearer token"
// @Success 200 {object} ExchangeResponse "Quote"
// @Header 200 {string} X-Rate-Provider "Provider that supplied the mid-rate"
// @Header 200 {string} X-Rate-Date "Provider's rate date"
// @Failure 400 {object} ErrorResponse "Invalid currency code or malformed claims"
// @Failure 401 {object} ErrorResponse "Missing or invalid credential"
// @Failure 500 {object} ErrorResponse "Misconfiguration"
// @Failure 502 {object} ErrorResponse "Key set or rate providers unavailable"
// @Security BearerAuth
// @Router /exchange/{from}/{to} [get]
func HandleGetExchange(svc service.QuoteServiceInterface, logger *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		creds := auth.Credentials{
			Authorization: r.Header.Get(headerAuthorization),
			AccountHeader: r.Header.Get(headerAccountID),
		}
		from := chi.URLParam(r, "from")
		to := chi.URLParam(r, "to")

		quote, err := svc.GetQuote(r.Context(), creds, from, to)
		if err != nil {
			status, code, message := classifyError(err)
			if status >= http.StatusInternalServerError {
				logger.Errorw("Exchange request failed",
					"request_id", middleware.RequestIDFromContext(r.Context()),
					"from", from,
					"to", to,
					"status", status,
					"error", err,
				)
			}
			writeError(w, status, code, message)
			return
		}

		if quote.Provider != "" {
			w.Header().Set(headerRateProvider, quote.Provider)
		}
		if quote.RateDate != "" {
			w.Header().Set(headerRateDate, quote.RateDate)
		}
		writeJSON(w, http.StatusOK, ExchangeResponse{
			Sell:      quote.Sell,
			Buy:       quote.Buy,
			Date:      quote.Date.UTC().Format(time.RFC3339Nano),
			AccountID: quote.AccountID,
		})
	}
}
