package auth

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenRequest describes a token to mint.
type TokenRequest struct {
	Algorithm string
	Subject   string
	Issuer    string
	Audience  []string
	KeyID     string
	TTL       time.Duration
	Extra     map[string]any
}

// SignToken mints a token for req. key is a []byte secret for HS*, an
// *rsa.PrivateKey for RS*/PS* and an *ecdsa.PrivateKey for ES*.
func SignToken(req TokenRequest, key any) (string, error) {
	method := jwt.GetSigningMethod(req.Algorithm)
	if method == nil || !IsSupportedAlgorithm(req.Algorithm) {
		return "", fmt.Errorf("%w: unsupported algorithm %q", ErrConfiguration, req.Algorithm)
	}

	now := time.Now()
	claims := jwt.MapClaims{"iat": now.Unix()}
	maps.Copy(claims, req.Extra)
	if req.Subject != "" {
		claims["sub"] = req.Subject
	}
	if req.Issuer != "" {
		claims["iss"] = req.Issuer
	}
	switch len(req.Audience) {
	case 0:
	case 1:
		claims["aud"] = req.Audience[0]
	default:
		claims["aud"] = req.Audience
	}
	if req.TTL > 0 {
		claims["exp"] = now.Add(req.TTL).Unix()
	}

	token := jwt.NewWithClaims(method, claims)
	if req.KeyID != "" {
		token.Header["kid"] = req.KeyID
	}
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseSigningKey loads the signing key for alg: the secret for HS* or a
// PEM-encoded private key otherwise.
func ParseSigningKey(alg, secret string, pemData []byte) (any, error) {
	switch {
	case IsSymmetric(alg):
		if secret == "" {
			return nil, fmt.Errorf("%w: %s requires a shared secret", ErrConfiguration, alg)
		}
		return []byte(secret), nil
	case IsAsymmetric(alg) && strings.HasPrefix(alg, "ES"):
		return jwt.ParseECPrivateKeyFromPEM(pemData)
	case IsAsymmetric(alg):
		return jwt.ParseRSAPrivateKeyFromPEM(pemData)
	default:
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrConfiguration, alg)
	}
}
