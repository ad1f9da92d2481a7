// Package auth resolves the caller's account identity from either a trusted
// gateway header or a verified bearer token.
package auth

import "errors"

var (
	// ErrMissingCredential means neither an account header nor a bearer token was supplied.
	ErrMissingCredential = errors.New("missing credential")

	// ErrInvalidToken covers bad signatures, wrong issuer or audience, unknown keys and malformed tokens.
	ErrInvalidToken = errors.New("invalid token")

	// ErrMissingAccountIdentifier means the token verified but carries no usable account claim.
	ErrMissingAccountIdentifier = errors.New("account identifier not found in token")

	// ErrMalformedClaims means the account claim exists but has a non-scalar value.
	ErrMalformedClaims = errors.New("malformed claims")

	// ErrConfiguration means the verifier cannot run with the current settings.
	ErrConfiguration = errors.New("authentication misconfigured")
)
