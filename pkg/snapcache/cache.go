package snapcache

import (
	"errors"
	"sync"
	"time"
)

// DefaultTTL bounds snapshot freshness.
const DefaultTTL = 30 * time.Minute

// ErrCacheMiss is returned when no fresh snapshot is stored for a key.
var ErrCacheMiss = errors.New("cache miss")

// Config holds cache configuration.
type Config struct {
	// TTL bounds snapshot freshness (default: DefaultTTL).
	TTL time.Duration

	// Now overrides the time source (for testing).
	Now func() time.Time
}

// Cache is a single-slot snapshot cache. It retains exactly one entry;
// storing under a new key replaces whatever the slot held. Cache is safe
// for concurrent use.
type Cache[S any] struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	slot *Entry[S]
}

// New creates a single-slot cache for snapshots of type S.
func New[S any](cfg Config) *Cache[S] {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Cache[S]{ttl: cfg.TTL, now: cfg.Now}
}

// TTL returns the configured snapshot lifetime.
func (c *Cache[S]) TTL() time.Duration {
	return c.ttl
}

// Get returns the entry stored for key. A hit requires the stored key to
// match exactly and the entry to be younger than the TTL; an expired entry
// is dropped on the spot. The returned entry is a shallow copy, so the
// snapshot it carries must be treated as read-only.
func (c *Cache[S]) Get(key string) (*Entry[S], error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.slot == nil {
		cacheMisses.WithLabelValues("empty").Inc()
		return nil, ErrCacheMiss
	}
	if c.slot.Key != key {
		cacheMisses.WithLabelValues("key_mismatch").Inc()
		return nil, ErrCacheMiss
	}
	if c.slot.Expired(c.now(), c.ttl) {
		c.slot = nil
		cacheMisses.WithLabelValues("expired").Inc()
		return nil, ErrCacheMiss
	}

	cacheHits.Inc()
	entry := *c.slot
	return &entry, nil
}

// Put stores snap under key with a fresh timestamp, replacing the prior
// entry regardless of its key or age.
func (c *Cache[S]) Put(key string, snap S) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.slot != nil && c.slot.Key != key {
		cacheReplacements.Inc()
	}
	c.slot = &Entry[S]{Key: key, Snapshot: snap, StoredAt: c.now()}
	cacheStores.Inc()
}

// Append refreshes the snapshot stored for key without resetting its
// timestamp. It reports false when the slot holds a different key or
// nothing at all, in which case the cache is left unchanged.
func (c *Cache[S]) Append(key string, snap S) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.slot == nil || c.slot.Key != key {
		return false
	}
	c.slot.Snapshot = snap
	cacheAppends.Inc()
	return true
}

// Clear drops the stored entry, if any.
func (c *Cache[S]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slot = nil
}

// Len returns the number of stored entries, either 0 or 1.
func (c *Cache[S]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.slot == nil {
		return 0
	}
	return 1
}
