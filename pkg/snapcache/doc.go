// Package snapcache provides the single-slot snapshot cache for feed state.
//
// The cache retains exactly one entry: the most recent feed snapshot, keyed
// by the query identity of the feed that produced it. The semantics follow
// the re-entry behavior of the recommendation surface:
//
//   - A Get is a hit only if the stored key string-matches exactly and the
//     entry is younger than the TTL.
//   - Expiry is evaluated lazily at read time; there is no background
//     eviction.
//   - A Put under a new key fully replaces the prior entry, even an
//     unexpired one.
//   - Append refreshes the snapshot in place without resetting the
//     timestamp, so a feed kept alive by paging still expires on schedule
//     after its initial snapshot.
//
// # Basic Usage
//
//	cache := snapcache.New[[]feed.Item](snapcache.Config{})
//
//	entry, err := cache.Get(key)
//	if err == snapcache.ErrCacheMiss {
//		// fetch fresh data, then:
//		cache.Put(key, items)
//	}
//
//	// after appending a page to the same feed:
//	cache.Append(key, items)
//
// Snapshots are stored as-is: the cache never copies the value. Callers
// must treat a snapshot obtained from Get as read-only and store fresh
// slices on Put and Append.
//
// # Metrics
//
// The cache exports Prometheus metrics:
//
//   - snapshot_cache_hits_total - Cache hits
//   - snapshot_cache_misses_total{reason} - Misses by reason (empty,
//     key_mismatch, expired)
//   - snapshot_cache_stores_total - Snapshots stored
//   - snapshot_cache_replacements_total - Entries replaced by a new key
//   - snapshot_cache_appends_total - In-place snapshot updates
package snapcache
