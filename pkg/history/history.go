// Package history provides access to a viewer's watch history, the seed for
// related-feed query generation and title deduplication.
//
// Stores keep records per viewer, most recent first. Three implementations
// are provided: MemoryStore for tests and single-process embedding,
// RedisStore for shared deployments, and SQLiteStore for single-node
// persistence.
package history

import (
	"context"
	"time"
)

// DefaultLimit is the number of records read when callers pass limit <= 0,
// and the default per-viewer retention of the provided stores.
const DefaultLimit = 50

// Record is one watch-history entry.
type Record struct {
	// ID is the upstream video identifier.
	ID string `json:"id"`

	// Title is the display title at watch time.
	Title string `json:"title"`

	// Tag is the category tag of the watched video.
	Tag string `json:"tag"`

	// Type is the content type ("movie", "tv", ...).
	Type string `json:"type"`

	// WatchedAt is when the viewer watched it.
	WatchedAt time.Time `json:"watched_at"`
}

// Store supplies and records a viewer's watch history.
//
// A re-watch is a new record, not an update: repeated (tag, type) pairs are
// how query generation learns what a viewer keeps coming back to.
type Store interface {
	// Recent returns up to limit records for the viewer, most recent first.
	// limit <= 0 means DefaultLimit.
	Recent(ctx context.Context, viewerID string, limit int) ([]Record, error)

	// Add records one watch event for the viewer.
	Add(ctx context.Context, viewerID string, rec Record) error
}
