package testkit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/lestrrat-go/jwx/jwk"
)

// KeySetServer serves a JWKS document over HTTP and counts how often it was requested.
type KeySetServer struct {
	*httptest.Server

	hits   atomic.Int32
	mu     sync.Mutex
	status int
	doc    []byte
}

// NewKeySetServer starts a server publishing the given JWK records. The
// server is closed when the test finishes.
func NewKeySetServer(t testing.TB, keys ...json.RawMessage) *KeySetServer {
	t.Helper()

	s := &KeySetServer{status: http.StatusOK}
	s.SetKeys(t, keys...)
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.hits.Add(1)
		s.mu.Lock()
		status, doc := s.status, s.doc
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write(doc)
	}))
	t.Cleanup(s.Close)
	return s
}

// SetKeys replaces the published document.
func (s *KeySetServer) SetKeys(t testing.TB, keys ...json.RawMessage) {
	t.Helper()
	if keys == nil {
		keys = []json.RawMessage{}
	}
	doc, err := json.Marshal(map[string][]json.RawMessage{"keys": keys})
	if err != nil {
		t.Fatalf("marshal key set: %v", err)
	}
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
}

// SetStatus makes the server answer with the given status code.
func (s *KeySetServer) SetStatus(code int) {
	s.mu.Lock()
	s.status = code
	s.mu.Unlock()
}

// Hits returns the number of requests served so far.
func (s *KeySetServer) Hits() int {
	return int(s.hits.Load())
}

// PublicJWK encodes a public key (*rsa.PublicKey or *ecdsa.PublicKey) as a JWK record.
func PublicJWK(t testing.TB, pub any, kid, alg string) json.RawMessage {
	t.Helper()

	key, err := jwk.New(pub)
	if err != nil {
		t.Fatalf("build jwk: %v", err)
	}
	for name, val := range map[string]string{
		jwk.KeyIDKey:     kid,
		jwk.AlgorithmKey: alg,
		jwk.KeyUsageKey:  "sig",
	} {
		if val == "" {
			continue
		}
		if err := key.Set(name, val); err != nil {
			t.Fatalf("set jwk %s: %v", name, err)
		}
	}
	raw, err := json.Marshal(key)
	if err != nil {
		t.Fatalf("marshal jwk: %v", err)
	}
	return raw
}
