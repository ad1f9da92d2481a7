package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"exchangeservice/internal/keyset"
)

// Algorithm family tables.
var (
	symmetricAlgorithms  = []string{"HS256", "HS384", "HS512"}
	asymmetricAlgorithms = []string{
		"RS256", "RS384", "RS512",
		"PS256", "PS384", "PS512",
		"ES256", "ES384", "ES512",
	}
)

// IsSymmetric reports whether alg is an HMAC algorithm.
func IsSymmetric(alg string) bool { return slices.Contains(symmetricAlgorithms, alg) }

// IsAsymmetric reports whether alg needs a public key from the key set.
func IsAsymmetric(alg string) bool { return slices.Contains(asymmetricAlgorithms, alg) }

// IsSupportedAlgorithm reports whether alg can be verified.
func IsSupportedAlgorithm(alg string) bool { return IsSymmetric(alg) || IsAsymmetric(alg) }

// KidPolicy decides what happens when a token's kid is absent from the key set.
type KidPolicy string

const (
	// FallbackToFirstKey verifies with the first key of the set and logs a warning.
	FallbackToFirstKey KidPolicy = "fallback_first"
	// StrictKidMatch rejects the token.
	StrictKidMatch KidPolicy = "strict"
)

// KeySource resolves verification keys. *keyset.Cache satisfies it.
type KeySource interface {
	Configured() bool
	Lookup(ctx context.Context, kid string) (keyset.Key, bool, error)
	First(ctx context.Context) (keyset.Key, bool, error)
}

// VerifierConfig holds deployment-time verification settings.
type VerifierConfig struct {
	Algorithm      string
	Secret         string
	Issuer         string
	Audience       []string
	AccountIDClaim string
	KidPolicy      KidPolicy
}

// TokenVerifier validates bearer tokens and extracts the account identity.
type TokenVerifier struct {
	cfg  VerifierConfig
	keys KeySource
	log  *zap.SugaredLogger
}

// NewTokenVerifier creates a TokenVerifier. keys may be nil for symmetric algorithms.
func NewTokenVerifier(cfg VerifierConfig, keys KeySource, logger *zap.SugaredLogger) *TokenVerifier {
	if cfg.AccountIDClaim == "" {
		cfg.AccountIDClaim = DefaultAccountIDClaim
	}
	if cfg.KidPolicy == "" {
		cfg.KidPolicy = FallbackToFirstKey
	}
	return &TokenVerifier{cfg: cfg, keys: keys, log: logger}
}

// ParseAudience splits a comma-separated audience list.
func ParseAudience(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingCredential
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", fmt.Errorf("%w: authorization header is not a bearer token", ErrMissingCredential)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingCredential
	}
	return token, nil
}

// Verify checks the token in the Authorization header value and returns its claims.
func (v *TokenVerifier) Verify(ctx context.Context, authorization string) (jwt.MapClaims, error) {
	raw, err := BearerToken(authorization)
	if err != nil {
		return nil, err
	}
	if !IsSupportedAlgorithm(v.cfg.Algorithm) {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrConfiguration, v.cfg.Algorithm)
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{v.cfg.Algorithm})}
	if v.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.cfg.Issuer))
	}

	var keyErr error
	claims := jwt.MapClaims{}
	_, err = jwt.NewParser(opts...).ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		key, err := v.verificationKey(ctx, t)
		if err != nil {
			keyErr = err
			return nil, err
		}
		return key, nil
	})
	if keyErr != nil {
		return nil, keyErr
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if err := v.checkAudience(claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// AccountID verifies the token and returns the account identifier it carries.
func (v *TokenVerifier) AccountID(ctx context.Context, authorization string) (string, error) {
	claims, err := v.Verify(ctx, authorization)
	if err != nil {
		return "", err
	}
	return ExtractAccountID(claims, v.cfg.AccountIDClaim)
}

func (v *TokenVerifier) checkAudience(claims jwt.MapClaims) error {
	if len(v.cfg.Audience) == 0 {
		return nil
	}
	aud, err := claims.GetAudience()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	for _, a := range aud {
		if slices.Contains(v.cfg.Audience, a) {
			return nil
		}
	}
	return fmt.Errorf("%w: audience %v not accepted", ErrInvalidToken, []string(aud))
}

func (v *TokenVerifier) verificationKey(ctx context.Context, t *jwt.Token) (any, error) {
	if IsSymmetric(v.cfg.Algorithm) {
		if v.cfg.Secret == "" {
			return nil, fmt.Errorf("%w: %s requires a shared secret", ErrConfiguration, v.cfg.Algorithm)
		}
		return []byte(v.cfg.Secret), nil
	}

	if v.keys == nil || !v.keys.Configured() {
		return nil, fmt.Errorf("%w: %s requires a key set URL", ErrConfiguration, v.cfg.Algorithm)
	}

	kid, _ := t.Header["kid"].(string)
	key, found, err := v.lookup(ctx, kid)
	if err != nil {
		return nil, err
	}
	if !found {
		if v.cfg.KidPolicy == StrictKidMatch {
			return nil, fmt.Errorf("%w: no key matches kid %q", ErrInvalidToken, kid)
		}
		key, found, err = v.keys.First(ctx)
		if err != nil {
			return nil, v.keySourceError(err)
		}
		if !found {
			return nil, fmt.Errorf("%w: no keys in key set", ErrInvalidToken)
		}
		v.log.Warnw("Token kid not in key set, verifying with first key",
			"kid", kid,
			"fallback_kid", key.Kid,
		)
	}

	pub, err := key.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return pub, nil
}

func (v *TokenVerifier) lookup(ctx context.Context, kid string) (keyset.Key, bool, error) {
	if kid == "" {
		return keyset.Key{}, false, nil
	}
	key, found, err := v.keys.Lookup(ctx, kid)
	if err != nil {
		return keyset.Key{}, false, v.keySourceError(err)
	}
	return key, found, nil
}

func (v *TokenVerifier) keySourceError(err error) error {
	if errors.Is(err, keyset.ErrNotConfigured) {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return err
}
