//go:build integration

package integration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"exchangeservice/internal/auth"
	"exchangeservice/internal/provider"
	"exchangeservice/internal/service"
)

const usdBRL = `{"amount":1.0,"base":"USD","date":"2025-10-21","rates":{"BRL":5.2}}`

func TestCachedProvider_StoresRateWithTTL(t *testing.T) {
	resetTestData(t)
	ctx := testContext(t)

	srv, hits := ratesTableServer(t, usdBRL)
	p := provider.NewCachedRatesProvider(provider.NewRatesTableProvider(srv.URL, 2*time.Second), testRDB, time.Minute)
	pair := provider.CurrencyPair{From: "USD", To: "BRL"}

	first, err := p.GetRate(ctx, pair)
	require.NoError(t, err)
	second, err := p.GetRate(ctx, pair)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 5.2, second.Mid)
	assert.Equal(t, "2025-10-21", second.Date)
	assert.Equal(t, provider.RatesTableProviderName, second.Provider)
	assert.EqualValues(t, 1, hits.Load())

	keys, err := testRDB.Keys(ctx, "provider_cache:rates_table:*").Result()
	require.NoError(t, err)
	require.Len(t, keys, 1)
	ttl, err := testRDB.TTL(ctx, keys[0]).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}

func TestCachedProvider_ExpiredEntryRefetches(t *testing.T) {
	resetTestData(t)
	ctx := testContext(t)

	srv, hits := ratesTableServer(t, usdBRL)
	p := provider.NewCachedRatesProvider(provider.NewRatesTableProvider(srv.URL, 2*time.Second), testRDB, time.Second)
	pair := provider.CurrencyPair{From: "USD", To: "BRL"}

	_, err := p.GetRate(ctx, pair)
	require.NoError(t, err)
	time.Sleep(1500 * time.Millisecond)
	_, err = p.GetRate(ctx, pair)
	require.NoError(t, err)

	assert.EqualValues(t, 2, hits.Load())
}

func TestQuoteService_CachedChain(t *testing.T) {
	resetTestData(t)
	ctx := testContext(t)

	srv, hits := ratesTableServer(t, usdBRL)
	logger := zap.NewNop().Sugar()
	chain, err := provider.NewChain(logger,
		provider.NewCachedRatesProvider(provider.NewConvertProvider("http://127.0.0.1:1", "", time.Second), testRDB, time.Minute),
		provider.NewCachedRatesProvider(provider.NewRatesTableProvider(srv.URL, 2*time.Second), testRDB, time.Minute),
	)
	require.NoError(t, err)

	identity, err := auth.NewIdentityResolver(auth.ModeHeader, nil)
	require.NoError(t, err)
	svc := service.NewQuoteService(identity, chain, service.NewValidator(), 50, logger)

	for range 2 {
		q, err := svc.GetQuote(ctx, auth.Credentials{AccountHeader: "acct-1"}, "usd", "brl")
		require.NoError(t, err)
		assert.Equal(t, 5.226, q.Sell)
		assert.Equal(t, 5.174, q.Buy)
		assert.Equal(t, "acct-1", q.AccountID)
		assert.Equal(t, provider.RatesTableProviderName, q.Provider)
	}
	assert.EqualValues(t, 1, hits.Load())

	n, err := testRDB.Exists(ctx, "provider_cache:convert:{USD:BRL}").Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}
