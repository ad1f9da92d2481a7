package provider

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedRatesProviderDecorator wraps a RatesProvider with Redis caching.
type CachedRatesProviderDecorator struct {
	provider RatesProvider
	cache    *redis.Client
	ttl      time.Duration
}

// NewCachedRatesProvider creates a new CachedRatesProviderDecorator.
func NewCachedRatesProvider(provider RatesProvider, cache *redis.Client, ttl time.Duration) *CachedRatesProviderDecorator {
	return &CachedRatesProviderDecorator{
		provider: provider,
		cache:    cache,
		ttl:      ttl,
	}
}

// Name returns the wrapped provider's name.
func (p *CachedRatesProviderDecorator) Name() string { return p.provider.Name() }

func (p *CachedRatesProviderDecorator) cacheKey(pair CurrencyPair) string {
	return fmt.Sprintf("provider_cache:%s:{%s:%s}", p.provider.Name(), pair.From, pair.To)
}

// GetRate attempts to fetch the rate from cache before calling the underlying provider.
func (p *CachedRatesProviderDecorator) GetRate(ctx context.Context, pair CurrencyPair) (RateQuote, error) {
	if p.cache == nil || p.ttl <= 0 {
		return p.provider.GetRate(ctx, pair)
	}

	key := p.cacheKey(pair)

	// check cache
	vals, err := p.cache.HMGet(ctx, key, "mid", "date").Result()
	if err == nil && len(vals) == 2 && vals[0] != nil && vals[1] != nil {
		midStr, ok1 := vals[0].(string)
		date, ok2 := vals[1].(string)
		if ok1 && ok2 {
			if mid, err2 := strconv.ParseFloat(midStr, 64); err2 == nil && mid > 0 {
				return RateQuote{Mid: mid, Date: date, Provider: p.provider.Name()}, nil
			}
		}
	}

	quote, err := p.provider.GetRate(ctx, pair)
	if err != nil {
		return RateQuote{}, err
	}

	pipe := p.cache.Pipeline()
	pipe.HSet(ctx, key, "mid", strconv.FormatFloat(quote.Mid, 'f', -1, 64), "date", quote.Date)
	pipe.Expire(ctx, key, p.ttl)
	_, _ = pipe.Exec(ctx)

	return quote, nil
}

var _ RatesProvider = (*CachedRatesProviderDecorator)(nil)
