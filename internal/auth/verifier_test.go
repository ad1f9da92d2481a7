package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"exchangeservice/internal/keyset"
	"exchangeservice/internal/testkit"
)

const testSecret = "test-secret-with-enough-entropy-0123456789"

func mustSign(t *testing.T, req TokenRequest, key any) string {
	t.Helper()
	tok, err := SignToken(req, key)
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestTokenVerifier_Symmetric(t *testing.T) {
	logger := zap.NewNop().Sugar()
	ctx := context.Background()

	t.Run("round trip returns subject", func(t *testing.T) {
		v := NewTokenVerifier(VerifierConfig{Algorithm: "HS512", Secret: testSecret}, nil, logger)
		header := mustSign(t, TokenRequest{Algorithm: "HS512", Subject: "acc-42"}, []byte(testSecret))

		id, err := v.AccountID(ctx, header)
		require.NoError(t, err)
		assert.Equal(t, "acc-42", id)
	})

	t.Run("lowercase bearer scheme is accepted", func(t *testing.T) {
		v := NewTokenVerifier(VerifierConfig{Algorithm: "HS256", Secret: testSecret}, nil, logger)
		tok, err := SignToken(TokenRequest{Algorithm: "HS256", Subject: "acc-1"}, []byte(testSecret))
		require.NoError(t, err)

		id, err := v.AccountID(ctx, "bearer "+tok)
		require.NoError(t, err)
		assert.Equal(t, "acc-1", id)
	})

	t.Run("wrong secret is invalid", func(t *testing.T) {
		v := NewTokenVerifier(VerifierConfig{Algorithm: "HS512", Secret: testSecret}, nil, logger)
		header := mustSign(t, TokenRequest{Algorithm: "HS512", Subject: "acc-42"}, []byte("another-secret"))

		_, err := v.Verify(ctx, header)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("algorithm other than configured is invalid", func(t *testing.T) {
		v := NewTokenVerifier(VerifierConfig{Algorithm: "HS512", Secret: testSecret}, nil, logger)
		header := mustSign(t, TokenRequest{Algorithm: "HS256", Subject: "acc-42"}, []byte(testSecret))

		_, err := v.Verify(ctx, header)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired token is invalid", func(t *testing.T) {
		v := NewTokenVerifier(VerifierConfig{Algorithm: "HS512", Secret: testSecret}, nil, logger)
		header := mustSign(t, TokenRequest{
			Algorithm: "HS512",
			Subject:   "acc-42",
			Extra:     map[string]any{"exp": time.Now().Add(-time.Hour).Unix()},
		}, []byte(testSecret))

		_, err := v.Verify(ctx, header)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage token is invalid", func(t *testing.T) {
		v := NewTokenVerifier(VerifierConfig{Algorithm: "HS512", Secret: testSecret}, nil, logger)
		_, err := v.Verify(ctx, "Bearer not.a.jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing or non-bearer header", func(t *testing.T) {
		v := NewTokenVerifier(VerifierConfig{Algorithm: "HS512", Secret: testSecret}, nil, logger)
		for _, h := range []string{"", "   ", "Bearer", "Bearer  ", "Basic dXNlcjpwYXNz"} {
			_, err := v.Verify(ctx, h)
			assert.ErrorIs(t, err, ErrMissingCredential, "header %q", h)
		}
	})

	t.Run("missing secret is a configuration error", func(t *testing.T) {
		v := NewTokenVerifier(VerifierConfig{Algorithm: "HS512"}, nil, logger)
		header := mustSign(t, TokenRequest{Algorithm: "HS512", Subject: "acc-42"}, []byte(testSecret))

		_, err := v.Verify(ctx, header)
		assert.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("unsupported algorithm is a configuration error", func(t *testing.T) {
		v := NewTokenVerifier(VerifierConfig{Algorithm: "none", Secret: testSecret}, nil, logger)
		_, err := v.Verify(ctx, "Bearer a.b.c")
		assert.ErrorIs(t, err, ErrConfiguration)
	})
}

func TestTokenVerifier_IssuerAndAudience(t *testing.T) {
	logger := zap.NewNop().Sugar()
	ctx := context.Background()
	key := []byte(testSecret)

	t.Run("issuer must match exactly", func(t *testing.T) {
		v := NewTokenVerifier(VerifierConfig{Algorithm: "HS512", Secret: testSecret, Issuer: "https://issuer.test"}, nil, logger)

		ok := mustSign(t, TokenRequest{Algorithm: "HS512", Subject: "a", Issuer: "https://issuer.test"}, key)
		_, err := v.Verify(ctx, ok)
		assert.NoError(t, err)

		bad := mustSign(t, TokenRequest{Algorithm: "HS512", Subject: "a", Issuer: "https://other.test"}, key)
		_, err = v.Verify(ctx, bad)
		assert.ErrorIs(t, err, ErrInvalidToken)

		none := mustSign(t, TokenRequest{Algorithm: "HS512", Subject: "a"}, key)
		_, err = v.Verify(ctx, none)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("audience allow-list accepts any member", func(t *testing.T) {
		v := NewTokenVerifier(VerifierConfig{
			Algorithm: "HS512",
			Secret:    testSecret,
			Audience:  ParseAudience("web, mobile"),
		}, nil, logger)

		for _, aud := range [][]string{{"mobile"}, {"other", "web"}} {
			h := mustSign(t, TokenRequest{Algorithm: "HS512", Subject: "a", Audience: aud}, key)
			_, err := v.Verify(ctx, h)
			assert.NoError(t, err, "audience %v", aud)
		}

		h := mustSign(t, TokenRequest{Algorithm: "HS512", Subject: "a", Audience: []string{"partner"}}, key)
		_, err := v.Verify(ctx, h)
		assert.ErrorIs(t, err, ErrInvalidToken)

		h = mustSign(t, TokenRequest{Algorithm: "HS512", Subject: "a"}, key)
		_, err = v.Verify(ctx, h)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("audience check skipped when not configured", func(t *testing.T) {
		v := NewTokenVerifier(VerifierConfig{Algorithm: "HS512", Secret: testSecret}, nil, logger)
		h := mustSign(t, TokenRequest{Algorithm: "HS512", Subject: "a", Audience: []string{"anything"}}, key)

		_, err := v.Verify(ctx, h)
		assert.NoError(t, err)
	})
}

func TestTokenVerifier_Asymmetric(t *testing.T) {
	logger := zap.NewNop().Sugar()
	ctx := context.Background()

	keyA, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keyB, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	srv := testkit.NewKeySetServer(t,
		testkit.PublicJWK(t, &keyA.PublicKey, "a", "RS256"),
		testkit.PublicJWK(t, &keyB.PublicKey, "b", "RS256"),
	)
	newVerifier := func(policy KidPolicy, url string) *TokenVerifier {
		return NewTokenVerifier(
			VerifierConfig{Algorithm: "RS256", KidPolicy: policy},
			keyset.NewCache(url, logger),
			logger,
		)
	}

	t.Run("kid selects matching key", func(t *testing.T) {
		h := mustSign(t, TokenRequest{Algorithm: "RS256", Subject: "acc-b", KeyID: "b"}, keyB)
		id, err := newVerifier(FallbackToFirstKey, srv.URL).AccountID(ctx, h)
		require.NoError(t, err)
		assert.Equal(t, "acc-b", id)
	})

	t.Run("unknown kid falls back to first key", func(t *testing.T) {
		h := mustSign(t, TokenRequest{Algorithm: "RS256", Subject: "acc-a", KeyID: "z"}, keyA)
		id, err := newVerifier(FallbackToFirstKey, srv.URL).AccountID(ctx, h)
		require.NoError(t, err)
		assert.Equal(t, "acc-a", id)
	})

	t.Run("missing kid falls back to first key", func(t *testing.T) {
		h := mustSign(t, TokenRequest{Algorithm: "RS256", Subject: "acc-a"}, keyA)
		_, err := newVerifier(FallbackToFirstKey, srv.URL).Verify(ctx, h)
		assert.NoError(t, err)
	})

	t.Run("fallback key that did not sign is invalid", func(t *testing.T) {
		h := mustSign(t, TokenRequest{Algorithm: "RS256", Subject: "acc-b", KeyID: "z"}, keyB)
		_, err := newVerifier(FallbackToFirstKey, srv.URL).Verify(ctx, h)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("strict policy rejects unknown kid", func(t *testing.T) {
		h := mustSign(t, TokenRequest{Algorithm: "RS256", Subject: "acc-a", KeyID: "z"}, keyA)
		_, err := newVerifier(StrictKidMatch, srv.URL).Verify(ctx, h)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("empty key set is invalid", func(t *testing.T) {
		empty := testkit.NewKeySetServer(t)
		h := mustSign(t, TokenRequest{Algorithm: "RS256", Subject: "acc-a", KeyID: "a"}, keyA)
		_, err := newVerifier(FallbackToFirstKey, empty.URL).Verify(ctx, h)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unreachable key set is unavailable", func(t *testing.T) {
		down := testkit.NewKeySetServer(t)
		down.SetStatus(http.StatusBadGateway)
		h := mustSign(t, TokenRequest{Algorithm: "RS256", Subject: "acc-a", KeyID: "a"}, keyA)
		_, err := newVerifier(FallbackToFirstKey, down.URL).Verify(ctx, h)
		assert.ErrorIs(t, err, keyset.ErrKeySetUnavailable)
	})

	t.Run("no key set URL is a configuration error", func(t *testing.T) {
		h := mustSign(t, TokenRequest{Algorithm: "RS256", Subject: "acc-a", KeyID: "a"}, keyA)
		_, err := newVerifier(FallbackToFirstKey, "").Verify(ctx, h)
		assert.ErrorIs(t, err, ErrConfiguration)

		_, err = NewTokenVerifier(VerifierConfig{Algorithm: "RS256"}, nil, logger).Verify(ctx, h)
		assert.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("ES256 key from key set", func(t *testing.T) {
		ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		require.NoError(t, err)
		ecSrv := testkit.NewKeySetServer(t, testkit.PublicJWK(t, &ecKey.PublicKey, "ec", "ES256"))

		v := NewTokenVerifier(VerifierConfig{Algorithm: "ES256"}, keyset.NewCache(ecSrv.URL, logger), logger)
		h := mustSign(t, TokenRequest{Algorithm: "ES256", Subject: "acc-ec", KeyID: "ec"}, ecKey)
		id, err := v.AccountID(ctx, h)
		require.NoError(t, err)
		assert.Equal(t, "acc-ec", id)
	})
}

func TestTokenVerifier_AccountClaim(t *testing.T) {
	logger := zap.NewNop().Sugar()
	ctx := context.Background()
	key := []byte(testSecret)

	v := NewTokenVerifier(VerifierConfig{Algorithm: "HS512", Secret: testSecret, AccountIDClaim: "tenant"}, nil, logger)

	h := mustSign(t, TokenRequest{Algorithm: "HS512", Subject: "sub-1", Extra: map[string]any{"tenant": "t-9"}}, key)
	id, err := v.AccountID(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, "t-9", id)

	h = mustSign(t, TokenRequest{Algorithm: "HS512", Issuer: "x"}, key)
	_, err = v.AccountID(ctx, h)
	assert.ErrorIs(t, err, ErrMissingAccountIdentifier)

	h = mustSign(t, TokenRequest{Algorithm: "HS512", Extra: map[string]any{"tenant": map[string]any{"id": 1}}}, key)
	_, err = v.AccountID(ctx, h)
	assert.ErrorIs(t, err, ErrMalformedClaims)

	h = mustSign(t, TokenRequest{Algorithm: "HS512", Subject: "sub-2", Extra: map[string]any{"tenant": false}}, key)
	id, err = v.AccountID(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, "sub-2", id)
}
