// Package service implements the core business logic for exchange quotes.
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"exchangeservice/internal/auth"
	"exchangeservice/internal/provider"
)

// QuoteServiceInterface defines the operations available for quoting.
type QuoteServiceInterface interface {
	GetQuote(ctx context.Context, creds auth.Credentials, from, to string) (*Quote, error)
}

// Quote is a priced exchange quote for one account.
type Quote struct {
	Sell      float64
	Buy       float64
	Date      time.Time
	AccountID string

	Mid      float64
	RateDate string
	Provider string
}

// QuoteService composes identity resolution, rate acquisition and pricing.
type QuoteService struct {
	identity  auth.IdentityResolver
	provider  provider.RatesProvider
	validator Validator
	spreadBps float64
	log       *zap.SugaredLogger
	now       func() time.Time
}

// NewQuoteService creates a new QuoteService
func NewQuoteService(identity auth.IdentityResolver, prov provider.RatesProvider, validator Validator, spreadBps float64, logger *zap.SugaredLogger) *QuoteService {
	if validator == nil {
		validator = NewValidator()
	}
	return &QuoteService{
		identity:  identity,
		provider:  prov,
		validator: validator,
		spreadBps: spreadBps,
		log:       logger,
		now:       time.Now,
	}
}

// GetQuote authenticates the caller, fetches the mid-rate for from/to and
// prices it. Authentication failures return before any provider is called.
func (s *QuoteService) GetQuote(ctx context.Context, creds auth.Credentials, from, to string) (*Quote, error) {
	accountID, err := s.identity.Resolve(ctx, creds)
	if err != nil {
		return nil, err
	}

	pair, err := normalizePair(from, to)
	if err != nil {
		return nil, err
	}
	if vErr := s.validatePair(pair); vErr != nil {
		return nil, vErr
	}

	rate, err := s.provider.GetRate(ctx, pair)
	if err != nil {
		s.log.Errorw("Rate acquisition failed", "pair", pair.String(), "account", accountID, "error", err)
		return nil, err
	}

	sell, buy, err := Calculate(rate.Mid, s.spreadBps)
	if err != nil {
		s.log.Errorw("Quote calculation failed",
			"pair", pair.String(),
			"provider", rate.Provider,
			"mid", rate.Mid,
			"error", err,
		)
		return nil, fmt.Errorf("%s from %s: %w", pair, rate.Provider, err)
	}

	s.log.Infow("Quote issued",
		"pair", pair.String(),
		"account", accountID,
		"provider", rate.Provider,
		"mid", rate.Mid,
	)
	return &Quote{
		Sell:      sell,
		Buy:       buy,
		Date:      s.now().UTC(),
		AccountID: accountID,
		Mid:       rate.Mid,
		RateDate:  rate.Date,
		Provider:  rate.Provider,
	}, nil
}

func (s *QuoteService) validatePair(pair provider.CurrencyPair) error {
	if err := s.validator.Validate(pair.From); err != nil {
		return err
	}
	return s.validator.Validate(pair.To)
}
