// Package main is the entry point for the exchange quote service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"exchangeservice/internal/auth"
	"exchangeservice/internal/config"
	"exchangeservice/internal/keyset"
	"exchangeservice/internal/provider"
	"exchangeservice/internal/service"
)

// App holds all application dependencies and manages their lifecycle.
type App struct {
	cfg        *config.Config
	logger     *zap.SugaredLogger
	rdbCache   *redis.Client
	httpServer *http.Server
}

// NewApp initializes all dependencies and returns a ready-to-run App.
func NewApp(cfg *config.Config, logger *zap.SugaredLogger) (*App, error) {
	app := &App{
		cfg:    cfg,
		logger: logger,
	}

	if err := app.initStorage(); err != nil {
		_ = app.close()
		return nil, err
	}

	if err := app.initServices(); err != nil {
		_ = app.close()
		return nil, err
	}

	return app, nil
}

// close releases the Redis connection
func (app *App) close() error {
	var errs []error
	if app.rdbCache != nil {
		if err := app.rdbCache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis cache close: %w", err))
		}
	}
	return errors.Join(errs...)
}

// initStorage connects the optional provider rate cache.
func (app *App) initStorage() error {
	if app.cfg.Redis.CacheAddr == "" {
		app.logger.Infow("Provider rate cache disabled")
		return nil
	}

	app.rdbCache = redis.NewClient(&redis.Options{
		Addr: app.cfg.Redis.CacheAddr,
	})
	if err := app.rdbCache.Ping(context.Background()).Err(); err != nil {
		return fmt.Errorf("connect to Redis (cache, %s): %w", app.cfg.Redis.CacheAddr, err)
	}
	app.logger.Infow("Connected to Redis cache", "addr", app.cfg.Redis.CacheAddr)

	return nil
}

func (app *App) initServices() error {
	identity, err := newIdentityResolver(app.cfg, app.logger)
	if err != nil {
		return err
	}

	rateProvider, err := newRateProvider(app.cfg, app.rdbCache, app.logger)
	if err != nil {
		return err
	}

	quoteService := service.NewQuoteService(
		identity,
		rateProvider,
		service.NewValidator(app.cfg.Quote.AllowedCurrencies...),
		app.cfg.Quote.SpreadBps,
		app.logger,
	)

	app.initHTTP(quoteService)
	return nil
}

func newIdentityResolver(cfg *config.Config, logger *zap.SugaredLogger) (auth.IdentityResolver, error) {
	mode := auth.IdentityMode(cfg.Auth.IdentityMode)
	if mode == auth.ModeHeader {
		return auth.NewIdentityResolver(mode, nil)
	}

	var keys auth.KeySource
	if auth.IsAsymmetric(cfg.Auth.Algorithm) {
		keys = keyset.NewCache(cfg.Auth.JWKSURL, logger,
			keyset.WithTTL(time.Duration(cfg.Auth.JWKSCacheTTLSec)*time.Second),
			keyset.WithSize(cfg.Auth.JWKSCacheSize),
			keyset.WithTimeout(time.Duration(cfg.Auth.JWKSTimeoutSec)*time.Second),
		)
	}

	verifier := auth.NewTokenVerifier(auth.VerifierConfig{
		Algorithm:      cfg.Auth.Algorithm,
		Secret:         cfg.Auth.JWTSecret,
		Issuer:         cfg.Auth.Issuer,
		Audience:       auth.ParseAudience(cfg.Auth.Audience),
		AccountIDClaim: cfg.Auth.AccountIDClaim,
		KidPolicy:      auth.KidPolicy(cfg.Auth.KidPolicy),
	}, keys, logger)

	logger.Infow("Token verification configured",
		"identity_mode", mode,
		"algorithm", cfg.Auth.Algorithm,
		"jwks_url", cfg.Auth.JWKSURL,
		"issuer", cfg.Auth.Issuer,
	)
	return auth.NewIdentityResolver(mode, verifier)
}

func newRateProvider(cfg *config.Config, cache *redis.Client, logger *zap.SugaredLogger) (*provider.Chain, error) {
	ttl := time.Duration(cfg.Cache.ProviderRateTTLSec) * time.Second

	providers := make([]provider.RatesProvider, 0, len(cfg.Providers.Order))
	for _, name := range cfg.Providers.Order {
		var p provider.RatesProvider
		switch name {
		case provider.ConvertProviderName:
			s := cfg.Providers.Convert
			p = provider.NewConvertProvider(s.BaseURL, s.APIKey, s.Timeout())
		case provider.RatesTableProviderName:
			s := cfg.Providers.RatesTable
			p = provider.NewRatesTableProvider(s.BaseURL, s.Timeout())
		case provider.PairKeyedProviderName:
			s := cfg.Providers.PairKeyed
			p = provider.NewPairKeyedProvider(s.BaseURL, s.Timeout())
		default:
			return nil, fmt.Errorf("unknown rate provider %q", name)
		}
		if cache != nil {
			p = provider.NewCachedRatesProvider(p, cache, ttl)
		}
		providers = append(providers, p)
	}

	chain, err := provider.NewChain(logger, providers...)
	if err != nil {
		return nil, err
	}
	logger.Infow("Rate providers configured", "order", chain.Providers(), "cached", cache != nil)
	return chain, nil
}

// Run starts the HTTP server, blocking until the context is canceled.
func (app *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.logger.Infow("HTTP server listening", "port", app.cfg.Server.Port)
		if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Triggered by a signal or a failed listener.
	g.Go(func() error {
		<-ctx.Done()
		return app.shutdown()
	})

	return g.Wait()
}

// shutdown drains in-flight HTTP requests, then closes Redis.
func (app *App) shutdown() error {
	app.logger.Infow("Shutting down server...")

	var errs []error

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		app.logger.Errorw("HTTP server shutdown error", "error", err)
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}

	if err := app.close(); err != nil {
		app.logger.Errorw("Connection cleanup errors", "error", err)
		errs = append(errs, err)
	}

	app.logger.Infow("Shutdown complete")
	return errors.Join(errs...)
}
