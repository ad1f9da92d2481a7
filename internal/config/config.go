// Package config provides application configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"exchangeservice/internal/auth"
	"exchangeservice/internal/provider"
	"exchangeservice/internal/service"
)

// EnvPrefix is prepended to every configuration key read from the environment.
const EnvPrefix = "EXCHANGE"

// Config holds the complete application configuration.
type Config struct {
	Server    ServerConfig
	Auth      AuthConfig
	Quote     QuoteConfig
	Providers ProvidersConfig
	Redis     RedisConfig
	Cache     CacheConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int  `mapstructure:"port"`
	ServeSwagger bool `mapstructure:"serve_swagger"`
}

// AuthConfig holds token verification and identity settings.
type AuthConfig struct {
	IdentityMode    string `mapstructure:"identity_mode"`
	Algorithm       string `mapstructure:"algorithm"`
	JWTSecret       string `mapstructure:"jwt_secret"`
	JWKSURL         string `mapstructure:"jwks_url"`
	Issuer          string `mapstructure:"issuer"`
	Audience        string `mapstructure:"audience"` // Comma-separated allow-list.
	AccountIDClaim  string `mapstructure:"account_id_claim"`
	KidPolicy       string `mapstructure:"kid_policy"`
	JWKSCacheTTLSec int    `mapstructure:"jwks_cache_ttl_sec"`
	JWKSCacheSize   int    `mapstructure:"jwks_cache_size"`
	JWKSTimeoutSec  int    `mapstructure:"jwks_timeout_sec"`
}

// QuoteConfig holds pricing settings.
type QuoteConfig struct {
	SpreadBps         float64  `mapstructure:"spread_bps"`
	AllowedCurrencies []string `mapstructure:"allowed_currencies"` // Empty accepts any 3-letter code.
}

// ProvidersConfig holds the rate provider chain settings.
type ProvidersConfig struct {
	Order      []string         `mapstructure:"order"`
	Convert    ProviderSettings `mapstructure:"convert"`
	RatesTable ProviderSettings `mapstructure:"rates_table"`
	PairKeyed  ProviderSettings `mapstructure:"pair_keyed"`
}

// ProviderSettings holds settings for one rate provider.
type ProviderSettings struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	TimeoutSec int    `mapstructure:"timeout_sec"`
}

// Timeout returns the per-attempt timeout.
func (p ProviderSettings) Timeout() time.Duration {
	return time.Duration(p.TimeoutSec) * time.Second
}

// RedisConfig holds the optional Redis cache connection.
type RedisConfig struct {
	CacheAddr string `mapstructure:"cache_addr"` // Empty disables the provider rate cache.
}

// CacheConfig holds caching settings.
type CacheConfig struct {
	ProviderRateTTLSec int `mapstructure:"provider_rate_ttl_sec"`
}

// legacyEnv maps configuration keys to the bare environment names used by
// earlier deployments. The prefixed name always wins.
var legacyEnv = map[string][]string{
	"server.port":                   {"EXCHANGE_PORT"},
	"auth.algorithm":                {"AUTH_ALG"},
	"auth.jwt_secret":               {"EXCHANGE_JWT_SECRET", "JWT_SECRET"},
	"auth.jwks_url":                 {"JWKS_URL"},
	"auth.issuer":                   {"JWT_ISSUER"},
	"auth.audience":                 {"JWT_AUDIENCE"},
	"auth.account_id_claim":         {"JWT_ACCOUNT_ID_CLAIM"},
	"quote.spread_bps":              {"SPREAD_BPS"},
	"providers.pair_keyed.base_url": {"EXTERNAL_API_BASE"},
}

// LoadConfig reads configuration from config files, environment variables, and defaults.
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		fmt.Printf("No .env file found or error loading it: %v\n", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Config search paths
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./internal/config")

	if err := v.ReadInConfig(); err != nil {
		// It's okay if no config file, we have defaults and env
		fmt.Printf("Config file not found: %v\n", err)
	}

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	for key, names := range legacyEnv {
		canonical := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key, canonical}, names...)...); err != nil {
			return nil, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8083)
	v.SetDefault("server.serve_swagger", true)
	v.SetDefault("auth.identity_mode", string(auth.ModeHeaderOrToken))
	v.SetDefault("auth.algorithm", "HS512")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwks_url", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.audience", "")
	v.SetDefault("auth.account_id_claim", auth.DefaultAccountIDClaim)
	v.SetDefault("auth.kid_policy", string(auth.FallbackToFirstKey))
	v.SetDefault("auth.jwks_cache_ttl_sec", 300)
	v.SetDefault("auth.jwks_cache_size", 32)
	v.SetDefault("auth.jwks_timeout_sec", 10)
	v.SetDefault("quote.spread_bps", 50)
	v.SetDefault("quote.allowed_currencies", []string{})
	v.SetDefault("providers.order", []string{
		provider.ConvertProviderName,
		provider.RatesTableProviderName,
		provider.PairKeyedProviderName,
	})
	v.SetDefault("providers.convert.base_url", "https://api.exchangerate.host")
	v.SetDefault("providers.convert.api_key", "")
	v.SetDefault("providers.convert.timeout_sec", 10)
	v.SetDefault("providers.rates_table.base_url", "https://api.frankfurter.app")
	v.SetDefault("providers.rates_table.timeout_sec", 10)
	v.SetDefault("providers.pair_keyed.base_url", "https://economia.awesomeapi.com.br")
	v.SetDefault("providers.pair_keyed.timeout_sec", 10)
	v.SetDefault("redis.cache_addr", "")
	v.SetDefault("cache.provider_rate_ttl_sec", 60)
}

func (c *Config) normalize() {
	c.Auth.Algorithm = strings.ToUpper(strings.TrimSpace(c.Auth.Algorithm))
	c.Auth.IdentityMode = strings.ToLower(strings.TrimSpace(c.Auth.IdentityMode))
	c.Auth.KidPolicy = strings.ToLower(strings.TrimSpace(c.Auth.KidPolicy))

	order := make([]string, 0, len(c.Providers.Order))
	for _, name := range c.Providers.Order {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			order = append(order, name)
		}
	}
	c.Providers.Order = order
}

// Validate checks that all required configuration fields are set and valid.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be positive, got %d", c.Server.Port))
	}

	mode := auth.IdentityMode(c.Auth.IdentityMode)
	switch mode {
	case auth.ModeHeaderOrToken, auth.ModeToken, auth.ModeHeader:
	default:
		errs = append(errs, fmt.Errorf("auth.identity_mode must be one of header_or_token, token, header, got %q", c.Auth.IdentityMode))
	}

	if mode != auth.ModeHeader {
		switch {
		case !auth.IsSupportedAlgorithm(c.Auth.Algorithm):
			errs = append(errs, fmt.Errorf("auth.algorithm %q is not supported", c.Auth.Algorithm))
		case auth.IsSymmetric(c.Auth.Algorithm) && c.Auth.JWTSecret == "":
			errs = append(errs, fmt.Errorf("auth.jwt_secret is required for %s (set %s_AUTH_JWT_SECRET)", c.Auth.Algorithm, EnvPrefix))
		case auth.IsAsymmetric(c.Auth.Algorithm) && c.Auth.JWKSURL == "":
			errs = append(errs, fmt.Errorf("auth.jwks_url is required for %s (set %s_AUTH_JWKS_URL)", c.Auth.Algorithm, EnvPrefix))
		}
	}

	switch auth.KidPolicy(c.Auth.KidPolicy) {
	case auth.FallbackToFirstKey, auth.StrictKidMatch:
	default:
		errs = append(errs, fmt.Errorf("auth.kid_policy must be fallback_first or strict, got %q", c.Auth.KidPolicy))
	}
	if c.Auth.JWKSCacheTTLSec <= 0 {
		errs = append(errs, fmt.Errorf("auth.jwks_cache_ttl_sec must be positive, got %d", c.Auth.JWKSCacheTTLSec))
	}
	if c.Auth.JWKSCacheSize <= 0 {
		errs = append(errs, fmt.Errorf("auth.jwks_cache_size must be positive, got %d", c.Auth.JWKSCacheSize))
	}
	if c.Auth.JWKSTimeoutSec <= 0 {
		errs = append(errs, fmt.Errorf("auth.jwks_timeout_sec must be positive, got %d", c.Auth.JWKSTimeoutSec))
	}

	if err := service.ValidateSpread(c.Quote.SpreadBps); err != nil {
		errs = append(errs, fmt.Errorf("quote.spread_bps: %w", err))
	}
	for _, code := range c.Quote.AllowedCurrencies {
		if !service.IsValidCurrencyCode(strings.TrimSpace(code)) {
			errs = append(errs, fmt.Errorf("quote.allowed_currencies contains invalid code %q", code))
		}
	}

	if len(c.Providers.Order) == 0 {
		errs = append(errs, errors.New("providers.order must name at least one provider"))
	}
	known := []string{provider.ConvertProviderName, provider.RatesTableProviderName, provider.PairKeyedProviderName}
	for i, name := range c.Providers.Order {
		if !slices.Contains(known, name) {
			errs = append(errs, fmt.Errorf("providers.order: unknown provider %q", name))
		}
		if slices.Index(c.Providers.Order, name) != i {
			errs = append(errs, fmt.Errorf("providers.order: %q listed twice", name))
		}
	}
	for name, p := range map[string]ProviderSettings{
		provider.ConvertProviderName:    c.Providers.Convert,
		provider.RatesTableProviderName: c.Providers.RatesTable,
		provider.PairKeyedProviderName:  c.Providers.PairKeyed,
	} {
		if slices.Contains(c.Providers.Order, name) && p.TimeoutSec <= 0 {
			errs = append(errs, fmt.Errorf("providers.%s.timeout_sec must be positive, got %d", name, p.TimeoutSec))
		}
	}

	if c.Redis.CacheAddr != "" && c.Cache.ProviderRateTTLSec <= 0 {
		errs = append(errs, fmt.Errorf("cache.provider_rate_ttl_sec must be positive, got %d", c.Cache.ProviderRateTTLSec))
	}

	return errors.Join(errs...)
}
