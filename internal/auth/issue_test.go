package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignToken(t *testing.T) {
	tok, err := SignToken(TokenRequest{
		Algorithm: "HS384",
		Subject:   "acc-7",
		Issuer:    "gentoken",
		Audience:  []string{"fx"},
		KeyID:     "k1",
		TTL:       time.Hour,
	}, []byte(testSecret))
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	parsed, err := jwt.NewParser().ParseWithClaims(tok, claims, func(*jwt.Token) (any, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "k1", parsed.Header["kid"])
	assert.Equal(t, "HS384", parsed.Method.Alg())
	assert.Equal(t, "acc-7", claims["sub"])
	assert.Equal(t, "gentoken", claims["iss"])
	assert.Equal(t, "fx", claims["aud"])
	assert.Contains(t, claims, "exp")

	_, err = SignToken(TokenRequest{Algorithm: "none"}, nil)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestParseSigningKey(t *testing.T) {
	t.Run("secret for HMAC", func(t *testing.T) {
		k, err := ParseSigningKey("HS256", "s3cret", nil)
		require.NoError(t, err)
		assert.Equal(t, []byte("s3cret"), k)

		_, err = ParseSigningKey("HS256", "", nil)
		assert.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("RSA PEM", func(t *testing.T) {
		rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		data := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(rsaKey)})

		k, err := ParseSigningKey("PS256", "", data)
		require.NoError(t, err)
		assert.IsType(t, &rsa.PrivateKey{}, k)
	})

	t.Run("EC PEM", func(t *testing.T) {
		ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		require.NoError(t, err)
		der, err := x509.MarshalECPrivateKey(ecKey)
		require.NoError(t, err)
		data := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})

		k, err := ParseSigningKey("ES256", "", data)
		require.NoError(t, err)
		assert.IsType(t, &ecdsa.PrivateKey{}, k)
	})

	t.Run("unknown algorithm", func(t *testing.T) {
		_, err := ParseSigningKey("XX1", "", nil)
		assert.ErrorIs(t, err, ErrConfiguration)
	})
}
