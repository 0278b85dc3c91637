package snapcache

import "time"

// Entry is a cached snapshot together with its identity key and the time
// the key was first stored.
type Entry[S any] struct {
	// Key is the query identity the snapshot belongs to.
	Key string

	// Snapshot is the feed state recorded for the key.
	Snapshot S

	// StoredAt is when the snapshot was first stored under Key. Append
	// refreshes Snapshot but leaves StoredAt untouched.
	StoredAt time.Time
}

// Expired reports whether the entry is older than ttl at time t.
func (e *Entry[S]) Expired(t time.Time, ttl time.Duration) bool {
	return t.Sub(e.StoredAt) >= ttl
}

// Age returns how long the entry has been stored at time t.
func (e *Entry[S]) Age(t time.Time) time.Duration {
	return t.Sub(e.StoredAt)
}
