// Package keyset fetches and caches the remote JSON Web Key Set used to verify
// asymmetrically signed tokens.
package keyset

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lestrrat-go/jwx/jwk"
)

// ErrKeySetUnavailable is returned when the key set document cannot be
// downloaded or decoded. Callers may retry.
var ErrKeySetUnavailable = errors.New("key set unavailable")

// ErrNotConfigured is returned when no key set URL was configured.
var ErrNotConfigured = errors.New("key set URL not configured")

// Key is a single entry of a key set document.
type Key struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`

	// Raw holds the complete JWK record as published.
	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps the full record next to the indexed fields.
func (k *Key) UnmarshalJSON(data []byte) error {
	type plain Key
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*k = Key(p)
	k.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// PublicKey converts the JWK record into a crypto public key
// (*rsa.PublicKey or *ecdsa.PublicKey).
func (k Key) PublicKey() (any, error) {
	parsed, err := jwk.ParseKey(k.Raw)
	if err != nil {
		return nil, fmt.Errorf("parse jwk %q: %w", k.Kid, err)
	}
	var raw any
	if err := parsed.Raw(&raw); err != nil {
		return nil, fmt.Errorf("materialize jwk %q: %w", k.Kid, err)
	}
	return raw, nil
}

// Set is the decoded key set document.
type Set struct {
	Keys []Key `json:"keys"`
}

// Find returns the key with the given kid.
func (s *Set) Find(kid string) (Key, bool) {
	for _, k := range s.Keys {
		if k.Kid == kid {
			return k, true
		}
	}
	return Key{}, false
}
