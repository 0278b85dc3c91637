// Package query defines the descriptors that identify upstream
// recommendation queries, derives the cache identity key of a query set,
// and provides the reference generator that turns watch history into
// queries.
package query

// Descriptor identifies one upstream recommendation query.
// Descriptors are immutable for the lifetime of a feed instance.
type Descriptor struct {
	// Tag is the category tag to search for (e.g. "action").
	Tag string `json:"tag"`

	// Type is the content type to search within (e.g. "movie", "tv").
	Type string `json:"type"`

	// Label names this source on items it contributes to the feed.
	Label string `json:"label"`

	// PageStart is a randomized base offset fixed once per feed instance,
	// so a re-opened feed does not start on the exact same upstream rows.
	// It is excluded from the identity key.
	PageStart int `json:"page_start"`
}
