package keyset

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL     = 300 * time.Second
	DefaultSize    = 32
	DefaultTimeout = 10 * time.Second

	documentKey = "__jwks__"
	kidPrefix   = "kid:"
)

type entry struct {
	set *Set
	key Key
}

// Option customizes a Cache.
type Option func(*Cache)

// WithTTL sets how long an entry lives after insertion.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithSize sets the maximum number of cached entries.
func WithSize(size int) Option {
	return func(c *Cache) { c.size = size }
}

// WithTimeout bounds a single key set download.
func WithTimeout(d time.Duration) Option {
	return func(c *Cache) { c.timeout = d }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Cache) { c.client = client }
}

// Cache is a bounded, TTL-expiring cache over a remote key set document.
// The whole document is stored under a sentinel entry and individual keys
// are stored by kid once they have been looked up.
type Cache struct {
	url     string
	client  *http.Client
	ttl     time.Duration
	size    int
	timeout time.Duration
	entries *expirable.LRU[string, entry]
	group   singleflight.Group
	log     *zap.SugaredLogger
}

// NewCache creates a Cache for the key set published at url. An empty url
// yields a permanently empty cache.
func NewCache(url string, logger *zap.SugaredLogger, opts ...Option) *Cache {
	c := &Cache{
		url:     url,
		ttl:     DefaultTTL,
		size:    DefaultSize,
		timeout: DefaultTimeout,
		log:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: c.timeout}
	}
	c.entries = expirable.NewLRU[string, entry](c.size, nil, c.ttl)
	return c
}

// Configured reports whether a key set URL was provided.
func (c *Cache) Configured() bool {
	return c.url != ""
}

// Fetch returns the key set document, downloading it when the cached copy
// is missing or expired. Concurrent callers share one download.
func (c *Cache) Fetch(ctx context.Context) (*Set, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if e, ok := c.entries.Get(documentKey); ok && e.set != nil {
		return e.set, nil
	}

	ch := c.group.DoChan(documentKey, func() (any, error) {
		dlCtx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()

		set, err := c.download(dlCtx)
		if err != nil {
			return nil, err
		}
		c.entries.Add(documentKey, entry{set: set})
		c.log.Infow("Fetched key set", "url", c.url, "keys", len(set.Keys))
		return set, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrKeySetUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			c.log.Warnw("Key set fetch failed", "url", c.url, "error", res.Err)
			return nil, res.Err
		}
		return res.Val.(*Set), nil
	}
}

// Lookup resolves a key by kid. A kid that is not in the document is
// reported with ok=false and no error.
func (c *Cache) Lookup(ctx context.Context, kid string) (Key, bool, error) {
	if !c.Configured() {
		return Key{}, false, ErrNotConfigured
	}
	if e, ok := c.entries.Get(kidPrefix + kid); ok {
		return e.key, true, nil
	}

	set, err := c.Fetch(ctx)
	if err != nil {
		return Key{}, false, err
	}
	k, ok := set.Find(kid)
	if !ok {
		return Key{}, false, nil
	}
	c.entries.Add(kidPrefix+kid, entry{key: k})
	return k, true, nil
}

// First returns the first key of the document, if any.
func (c *Cache) First(ctx context.Context) (Key, bool, error) {
	set, err := c.Fetch(ctx)
	if err != nil {
		return Key{}, false, err
	}
	if len(set.Keys) == 0 {
		return Key{}, false, nil
	}
	return set.Keys[0], true, nil
}

func (c *Cache) download(ctx context.Context) (*Set, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrKeySetUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeySetUnavailable, err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: key set endpoint returned status %d: %s", ErrKeySetUnavailable, resp.StatusCode, string(body))
	}

	var set Set
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("%w: decode key set: %w", ErrKeySetUnavailable, err)
	}
	return &set, nil
}
