package provider

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var _ RatesProvider = (*Chain)(nil)

// Chain calls providers sequentially, in the configured order, until one succeeds.
type Chain struct {
	providers []RatesProvider
	log       *zap.SugaredLogger
}

// NewChain creates a Chain over the given providers. At least one provider is required.
func NewChain(logger *zap.SugaredLogger, providers ...RatesProvider) (*Chain, error) {
	if len(providers) == 0 {
		return nil, errors.New("rate provider chain needs at least one provider")
	}
	return &Chain{
		providers: providers,
		log:       logger,
	}, nil
}

// Name returns the chain's name.
func (c *Chain) Name() string { return "chain" }

// Providers returns the provider names in attempt order.
func (c *Chain) Providers() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

// GetRate calls providers sequentially until one succeeds. When all of them
// fail the error wraps ErrNoProviderAvailable and every attempt error.
func (c *Chain) GetRate(ctx context.Context, pair CurrencyPair) (RateQuote, error) {
	var errs []error
	for _, prov := range c.providers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		quote, err := prov.GetRate(ctx, pair)
		if err == nil {
			if quote.Provider == "" {
				quote.Provider = prov.Name()
			}
			return quote, nil
		}
		c.log.Warnw("Rate provider failed, trying next",
			"provider", prov.Name(),
			"pair", pair.String(),
			"error", err,
		)
		errs = append(errs, fmt.Errorf("%s: %w", prov.Name(), err))
	}

	return RateQuote{}, fmt.Errorf("%w: %w", ErrNoProviderAvailable, errors.Join(errs...))
}
