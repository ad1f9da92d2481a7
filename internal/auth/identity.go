package auth

import (
	"context"
	"fmt"
	"strings"
)

// Credentials carries the raw credential headers of one request.
type Credentials struct {
	Authorization string
	AccountHeader string
}

// IdentityMode selects how the caller's account is determined.
type IdentityMode string

const (
	// ModeHeaderOrToken trusts the gateway header when present, else verifies the token.
	ModeHeaderOrToken IdentityMode = "header_or_token"
	// ModeToken always verifies the bearer token.
	ModeToken IdentityMode = "token"
	// ModeHeader only accepts the gateway header.
	ModeHeader IdentityMode = "header"
)

// IdentityResolver turns request credentials into an account identifier.
type IdentityResolver interface {
	Resolve(ctx context.Context, creds Credentials) (string, error)
}

// AccountVerifier verifies a bearer credential and returns its account. *TokenVerifier satisfies it.
type AccountVerifier interface {
	AccountID(ctx context.Context, authorization string) (string, error)
}

// TrustedHeaderResolver accepts the account header set by an upstream gateway.
type TrustedHeaderResolver struct{}

// Resolve returns the trimmed account header.
func (TrustedHeaderResolver) Resolve(_ context.Context, creds Credentials) (string, error) {
	if id := strings.TrimSpace(creds.AccountHeader); id != "" {
		return id, nil
	}
	return "", ErrMissingCredential
}

// TokenResolver verifies the bearer token.
type TokenResolver struct {
	Verifier AccountVerifier
}

// Resolve verifies the Authorization header and returns the token's account.
func (r TokenResolver) Resolve(ctx context.Context, creds Credentials) (string, error) {
	if r.Verifier == nil {
		return "", fmt.Errorf("%w: token verification is not set up", ErrConfiguration)
	}
	return r.Verifier.AccountID(ctx, creds.Authorization)
}

// headerOrTokenResolver prefers the gateway header and falls back to the token.
type headerOrTokenResolver struct {
	header TrustedHeaderResolver
	token  TokenResolver
}

func (r headerOrTokenResolver) Resolve(ctx context.Context, creds Credentials) (string, error) {
	if strings.TrimSpace(creds.AccountHeader) != "" {
		return r.header.Resolve(ctx, creds)
	}
	return r.token.Resolve(ctx, creds)
}

// NewIdentityResolver builds the resolver for the given mode.
func NewIdentityResolver(mode IdentityMode, verifier AccountVerifier) (IdentityResolver, error) {
	switch mode {
	case ModeHeaderOrToken, "":
		return headerOrTokenResolver{token: TokenResolver{Verifier: verifier}}, nil
	case ModeToken:
		return TokenResolver{Verifier: verifier}, nil
	case ModeHeader:
		return TrustedHeaderResolver{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown identity mode %q", ErrConfiguration, mode)
	}
}
