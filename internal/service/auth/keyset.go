package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"go.uber.org/zap"

	"thakii-backend/pkg/logger"
)

const (
	// DefaultKeySetTTL is how long a fetched key set is served without refetching.
	DefaultKeySetTTL = time.Hour
	// DefaultFetchTimeout bounds a single key-set download.
	DefaultFetchTimeout = 10 * time.Second
	// DefaultMinRefetchInterval is the minimum spacing between refetches
	// forced by unknown key ids.
	DefaultMinRefetchInterval = 30 * time.Second

	maxKeySetBytes = 1 << 20
)

// KeySetSource returns the raw JSON Web Key Set document.
type KeySetSource interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// Invalidator is implemented by sources that keep their own copy of the
// document and must drop it before a forced refetch.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// HTTPKeySetSource downloads the key set from the identity provider.
type HTTPKeySetSource struct {
	url    string
	client *http.Client
}

// NewHTTPKeySetSource creates a source for url. A zero timeout uses DefaultFetchTimeout.
func NewHTTPKeySetSource(url string, timeout time.Duration) *HTTPKeySetSource {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &HTTPKeySetSource{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// URL returns the endpoint the source reads from.
func (s *HTTPKeySetSource) URL() string {
	return s.url
}

// Fetch implements KeySetSource.
func (s *HTTPKeySetSource) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create key set request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch key set: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("key set endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxKeySetBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read key set: %w", err)
	}
	return body, nil
}

type keySetSnapshot struct {
	set       jwk.Set
	fetchedAt time.Time
}

// KeySetCache serves the provider's public keys, refetching after the TTL
// elapses or when a token names a key id it has not seen.
//
// The cached set is an immutable snapshot behind an atomic pointer. Readers
// never block; concurrent refreshes may both fetch and the last one wins.
// Forced refetches are spaced at least minRefetch apart.
type KeySetCache struct {
	source     KeySetSource
	ttl        time.Duration
	minRefetch time.Duration
	now        func() time.Time
	logger     *logger.Logger
	current    atomic.Pointer[keySetSnapshot]
	fetches    atomic.Int64
	lastForced atomic.Int64
}

// NewKeySetCache creates a cache over source. A zero ttl uses DefaultKeySetTTL.
func NewKeySetCache(source KeySetSource, ttl time.Duration, log *logger.Logger) *KeySetCache {
	if ttl <= 0 {
		ttl = DefaultKeySetTTL
	}
	return &KeySetCache{
		source:     source,
		ttl:        ttl,
		minRefetch: DefaultMinRefetchInterval,
		now:        time.Now,
		logger:     logger.OrNop(log),
	}
}

// Keys returns the current key set, fetching it when empty or stale.
func (c *KeySetCache) Keys(ctx context.Context) (jwk.Set, error) {
	if snap := c.current.Load(); snap != nil && c.now().Sub(snap.fetchedAt) < c.ttl {
		return snap.set, nil
	}
	snap, err := c.refresh(ctx, false)
	if err != nil {
		return nil, err
	}
	return snap.set, nil
}

// FindKey returns the key with the given id. A miss forces exactly one
// refetch; a second miss is UnknownKey. Misses within minRefetch of the
// previous forced refetch are UnknownKey without fetching.
func (c *KeySetCache) FindKey(ctx context.Context, kid string) (jwk.Key, error) {
	set, err := c.Keys(ctx)
	if err != nil {
		return nil, err
	}
	if key, ok := set.LookupKeyID(kid); ok {
		return key, nil
	}

	if !c.claimForcedRefetch() {
		c.logger.Debug("Key id not in cached set, refetch throttled", zap.String("kid", kid))
		return nil, newError(KindUnknownKey, fmt.Errorf("key id %q not found", kid))
	}

	c.logger.Debug("Key id not in cached set, refetching", zap.String("kid", kid))

	snap, err := c.refresh(ctx, true)
	if err != nil {
		return nil, err
	}
	if key, ok := snap.set.LookupKeyID(kid); ok {
		return key, nil
	}
	return nil, newError(KindUnknownKey, fmt.Errorf("key id %q not found", kid))
}

// FetchCount is the number of fetches attempted since construction.
func (c *KeySetCache) FetchCount() int64 {
	return c.fetches.Load()
}

// Age returns how long ago the current set was fetched. ok is false before
// the first successful fetch.
func (c *KeySetCache) Age() (age time.Duration, ok bool) {
	snap := c.current.Load()
	if snap == nil {
		return 0, false
	}
	return c.now().Sub(snap.fetchedAt), true
}

// claimForcedRefetch reports whether the caller may force a refetch now.
// At most one caller wins per interval.
func (c *KeySetCache) claimForcedRefetch() bool {
	now := c.now().UnixNano()
	last := c.lastForced.Load()
	if last != 0 && now-last < int64(c.minRefetch) {
		return false
	}
	return c.lastForced.CompareAndSwap(last, now)
}

func (c *KeySetCache) refresh(ctx context.Context, forced bool) (*keySetSnapshot, error) {
	c.fetches.Add(1)

	if inv, ok := c.source.(Invalidator); ok && forced {
		if err := inv.Invalidate(ctx); err != nil {
			c.logger.WithError(err).Warn("Failed to invalidate shared key set")
		}
	}

	body, err := c.source.Fetch(ctx)
	if err != nil {
		c.logger.WithError(err).Warn("Key set fetch failed")
		return nil, newError(KindKeySetUnavailable, err)
	}

	set, err := jwk.Parse(body)
	if err != nil {
		c.logger.WithError(err).Warn("Key set document could not be parsed")
		if inv, ok := c.source.(Invalidator); ok {
			if err := inv.Invalidate(ctx); err != nil {
				c.logger.WithError(err).Warn("Failed to invalidate shared key set")
			}
		}
		return nil, newError(KindKeySetUnavailable, fmt.Errorf("failed to parse key set: %w", err))
	}

	snap := &keySetSnapshot{set: set, fetchedAt: c.now()}
	c.current.Store(snap)

	c.logger.Debug("Key set refreshed",
		zap.Int("keys", set.Len()),
		zap.Bool("forced", forced))
	return snap, nil
}
