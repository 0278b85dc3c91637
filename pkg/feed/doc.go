// Package feed implements the multi-source recommendation feed engine.
//
// A feed instance aggregates N independent paginated catalog queries into
// one deduplicated, interleaved item list with incremental pagination. The
// queries are derived from a viewer's watch history; results are merged
// round-robin so no single source dominates the head of the feed, and
// titles already watched or already surfaced are dropped.
//
// Example usage:
//
//	engine, err := feed.New(feed.Config{
//		History:   store,
//		ViewerID:  "viewer-1",
//		Generator: query.NewGenerator(query.DefaultGeneratorConfig()),
//		Fetcher:   catalog.NewFanout(client, catalog.DefaultFanoutConfig()),
//	})
//	view, err := engine.Load(ctx)
//	// ... consumer scrolls ...
//	view, err = engine.LoadMore(ctx, view.Page+1)
//
// The engine is a state machine:
//
//	idle -> loading(initial) -> ready <-> loading(more) -> exhausted
//
// ready and exhausted are the only states with a stable item list. A
// load-more arriving while a load is in flight is dropped, not queued. A
// new Load supersedes any in-flight operation via a generation counter:
// the superseded result is discarded without touching state.
//
// Failure semantics: a failing source contributes an empty sub-result and
// degrades the feed; a page-level failure (history read error, context
// cancellation) reverts the engine to its previous state unchanged. There
// is no fatal error class and nothing is retried automatically.
//
// Snapshots are cached per query identity for 30 minutes (see snapcache);
// re-entering a feed with the same logical query set within the TTL reuses
// the cached items without a network call and optimistically re-opens
// pagination.
package feed
