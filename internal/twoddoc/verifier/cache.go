package verifier

import (
	"context"
	"crypto/ecdsa"
	"sync"
	"time"
)

type cachedKey struct {
	key     *ecdsa.PublicKey
	expires time.Time
}

// CachingResolver keeps resolved keys in memory for a fixed TTL.
// Lookup failures are not cached.
type CachingResolver struct {
	next KeyResolver
	ttl  time.Duration
	now  func() time.Time

	mu      sync.RWMutex
	entries map[string]cachedKey
}

// NewCachingResolver wraps next with a TTL cache
func NewCachingResolver(next KeyResolver, ttl time.Duration) *CachingResolver {
	return &CachingResolver{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cachedKey),
	}
}

// ResolveKey implements KeyResolver
func (c *CachingResolver) ResolveKey(ctx context.Context, caID, certID string) (*ecdsa.PublicKey, error) {
	k := anchorKey(caID, certID)

	c.mu.RLock()
	entry, ok := c.entries[k]
	c.mu.RUnlock()
	if ok && c.now().Before(entry.expires) {
		return entry.key, nil
	}

	key, err := c.next.ResolveKey(ctx, caID, certID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[k] = cachedKey{key: key, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()

	return key, nil
}

// Invalidate drops every cached key, e.g. after a rotation
func (c *CachingResolver) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]cachedKey)
	c.mu.Unlock()
}
