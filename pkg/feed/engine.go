package feed

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gujimy/KVideo/pkg/catalog"
	"github.com/gujimy/KVideo/pkg/history"
	"github.com/gujimy/KVideo/pkg/logging"
	"github.com/gujimy/KVideo/pkg/query"
	"github.com/gujimy/KVideo/pkg/snapcache"
)

const (
	// MinHistory is how many watch records a viewer needs before the feed
	// activates.
	MinHistory = 2

	// exhaustionFactor drives the initial-load heuristic: page 0 promises
	// more pages only if it yielded at least exhaustionFactor items per
	// active query.
	exhaustionFactor = 2
)

// QueryGenerator derives the fan-out query list from watch history. An
// empty result means no recommendations are possible.
type QueryGenerator interface {
	Generate(records []history.Record) []query.Descriptor
}

// Fetcher fetches one page for every query. Implementations must not fail
// the whole batch on a single source's error; a failing source yields an
// empty Result. *catalog.Fanout satisfies this.
type Fetcher interface {
	FetchAll(ctx context.Context, queries []query.Descriptor, page int) []catalog.Result
}

// Config holds feed engine configuration.
type Config struct {
	// History supplies the viewer's watch records.
	History history.Store

	// ViewerID selects whose history drives the feed.
	ViewerID string

	// Generator derives the fan-out queries from history.
	Generator QueryGenerator

	// Fetcher performs the per-page catalog fan-out.
	Fetcher Fetcher

	// Cache holds the last feed snapshot. Nil means a private single-slot
	// cache with the default TTL.
	Cache *snapcache.Cache[[]Item]

	// HistoryLimit caps how many records are read per operation
	// (default history.DefaultLimit).
	HistoryLimit int

	// MinHistory overrides the activation gate (default MinHistory).
	MinHistory int
}

// Engine is one feed instance: the pagination controller plus the state
// it guards. All state is mutated under the engine mutex; the snapshot
// cache and the per-operation SeenSet are touched by no one else.
type Engine struct {
	config Config
	cache  *snapcache.Cache[[]Item]
	logger zerolog.Logger

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	phase      Phase
	stable     Phase
	queries    []query.Descriptor
	cacheKey   string
	items      []Item
	anchors    []ScrollAnchor
	page       int
	hasMore    bool
	hasHistory bool
}

// New creates a feed engine for one viewer session.
func New(cfg Config) (*Engine, error) {
	if cfg.History == nil {
		return nil, fmt.Errorf("history store is required")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("query generator is required")
	}
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = history.DefaultLimit
	}
	if cfg.MinHistory <= 0 {
		cfg.MinHistory = MinHistory
	}

	cache := cfg.Cache
	if cache == nil {
		cache = snapcache.New[[]Item](snapcache.Config{})
	}

	return &Engine{
		config: cfg,
		cache:  cache,
		logger: logging.NewLogger("feed-engine"),
		phase:  PhaseIdle,
		stable: PhaseIdle,
	}, nil
}

// Load starts (or restarts) the feed from the viewer's current history. It
// reads history, derives the query set, and either reuses the cached
// snapshot for that query identity or fetches page 0 live. Calling Load
// while a previous operation is in flight supersedes it: the superseded
// result is discarded when it arrives.
//
// A cache hit re-opens the feed optimistically: HasMore is true regardless
// of how the cached feed ended, so the next LoadMore probes live. That is
// a product policy, not an accident.
func (e *Engine) Load(ctx context.Context) (ViewState, error) {
	start := time.Now()

	e.mu.Lock()
	e.generation++
	gen := e.generation
	if e.cancel != nil {
		e.cancel()
	}
	opCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.phase = PhaseLoadingInitial
	e.mu.Unlock()

	records, err := e.config.History.Recent(opCtx, e.config.ViewerID, e.config.HistoryLimit)
	if err != nil {
		return e.fail(gen, "initial", fmt.Errorf("read history: %w", err))
	}

	if len(records) < e.config.MinHistory {
		return e.finishLoad(gen, start, nil, "", nil, false, false, "no_history", false)
	}

	queries := e.config.Generator.Generate(records)
	if len(queries) == 0 {
		return e.finishLoad(gen, start, nil, "", nil, false, true, "no_queries", false)
	}

	key := query.IdentityKey(queries)

	if entry, cerr := e.cache.Get(key); cerr == nil {
		items := slices.Clone(entry.Snapshot)
		e.logger.Debug().
			Str("key", key).
			Dur("age", entry.Age(time.Now())).
			Int("items", len(items)).
			Msg("Snapshot hit, skipping network")
		return e.finishLoad(gen, start, queries, key, items, true, true, "cache_hit", false)
	}

	seen := SeedFromHistory(records)
	results := e.config.Fetcher.FetchAll(opCtx, queries, 0)
	if cause := opCtx.Err(); cause != nil {
		return e.fail(gen, "initial", fmt.Errorf("page fetch: %w", cause))
	}

	items := Interleave(results, seen)
	hasMore := len(items) >= exhaustionFactor*len(queries)
	return e.finishLoad(gen, start, queries, key, items, hasMore, true, "fetched", true)
}

// LoadMore fetches the given page (zero-based, supplied by the scroll
// trigger, not necessarily cursor+1) for the current query set and appends
// the unique new items. If nothing unique comes back the feed is exhausted
// and the cursor does not advance. A LoadMore while any operation is in
// flight is dropped, not queued. On an idle or exhausted feed it is a
// no-op.
func (e *Engine) LoadMore(ctx context.Context, page int) (ViewState, error) {
	start := time.Now()

	e.mu.Lock()
	if e.phase.loading() {
		loadMoresTotal.WithLabelValues("dropped").Inc()
		view := e.viewLocked()
		e.mu.Unlock()
		return view, ErrLoadInFlight
	}
	if e.phase != PhaseReady {
		loadMoresTotal.WithLabelValues("noop").Inc()
		view := e.viewLocked()
		e.mu.Unlock()
		return view, nil
	}
	gen := e.generation
	opCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.phase = PhaseLoadingMore
	queries := e.queries
	existing := slices.Clone(e.items)
	e.mu.Unlock()

	records, err := e.config.History.Recent(opCtx, e.config.ViewerID, e.config.HistoryLimit)
	if err != nil {
		return e.fail(gen, "more", fmt.Errorf("read history: %w", err))
	}

	// Rebuild the SeenSet from scratch: watched titles plus everything the
	// feed already shows, so dedup holds across pages.
	seen := SeedFromHistory(records)
	for _, it := range existing {
		seen.Add(it.Title)
	}

	results := e.config.Fetcher.FetchAll(opCtx, queries, page)
	if cause := opCtx.Err(); cause != nil {
		return e.fail(gen, "more", fmt.Errorf("page fetch: %w", cause))
	}

	fresh := Interleave(results, seen)

	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.generation {
		loadMoresTotal.WithLabelValues("stale").Inc()
		return e.viewLocked(), ErrStaleLoad
	}
	e.clearCancelLocked()

	// Second duplicate check against the live item list.
	existingTitles := make(map[string]struct{}, len(e.items))
	for _, it := range e.items {
		existingTitles[Normalize(it.Title)] = struct{}{}
	}
	var unique []Item
	for _, it := range fresh {
		if _, dup := existingTitles[Normalize(it.Title)]; dup {
			duplicatesDropped.WithLabelValues("append").Inc()
			continue
		}
		unique = append(unique, it)
	}

	if len(unique) == 0 {
		e.phase = PhaseExhausted
		e.stable = PhaseExhausted
		e.hasMore = false
		exhaustionsTotal.Inc()
		loadMoresTotal.WithLabelValues("exhausted").Inc()
		loadDuration.WithLabelValues("more").Observe(time.Since(start).Seconds())
		e.logger.Info().
			Int("page", page).
			Int("items", len(e.items)).
			Dur("duration", time.Since(start)).
			Msg("Feed exhausted")
		return e.viewLocked(), nil
	}

	e.anchors = append(e.anchors, ScrollAnchor{Index: len(e.items), Page: page})
	e.items = append(e.items, unique...)
	e.page = page
	e.phase = PhaseReady
	e.stable = PhaseReady

	if ok := e.cache.Append(e.cacheKey, slices.Clone(e.items)); !ok {
		e.logger.Debug().Str("key", e.cacheKey).Msg("Snapshot append skipped, slot gone")
	}

	itemsAppended.Add(float64(len(unique)))
	loadMoresTotal.WithLabelValues("appended").Inc()
	loadDuration.WithLabelValues("more").Observe(time.Since(start).Seconds())
	e.logger.Info().
		Int("page", page).
		Int("new_items", len(unique)).
		Int("items", len(e.items)).
		Dur("duration", time.Since(start)).
		Msg("Feed page appended")

	return e.viewLocked(), nil
}

// Refresh restarts the feed against the viewer's current history. It is
// Load by another name: the generation bump discards any in-flight
// operation, and a history that maps to the same query identity will hit
// the snapshot cache even though the regenerated offsets differ.
func (e *Engine) Refresh(ctx context.Context) (ViewState, error) {
	return e.Load(ctx)
}

// View returns the current feed state.
func (e *Engine) View() ViewState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewLocked()
}

// finishLoad applies the outcome of an initial load if its generation is
// still current.
func (e *Engine) finishLoad(gen uint64, start time.Time, queries []query.Descriptor, key string, items []Item, hasMore, hasHistory bool, result string, putCache bool) (ViewState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.generation {
		loadsTotal.WithLabelValues("stale").Inc()
		return e.viewLocked(), ErrStaleLoad
	}
	e.clearCancelLocked()

	e.queries = queries
	e.cacheKey = key
	e.items = items
	e.page = 0
	e.hasMore = hasMore
	e.hasHistory = hasHistory
	if len(items) > 0 {
		e.anchors = []ScrollAnchor{{Index: 0, Page: 0}}
	} else {
		e.anchors = nil
	}
	if hasMore {
		e.phase = PhaseReady
	} else {
		e.phase = PhaseExhausted
		exhaustionsTotal.Inc()
	}
	e.stable = e.phase

	if putCache {
		e.cache.Put(key, slices.Clone(items))
	}

	loadsTotal.WithLabelValues(result).Inc()
	loadDuration.WithLabelValues("initial").Observe(time.Since(start).Seconds())
	e.logger.Info().
		Str("result", result).
		Int("queries", len(queries)).
		Int("items", len(items)).
		Bool("has_more", hasMore).
		Dur("duration", time.Since(start)).
		Msg("Feed loaded")

	return e.viewLocked(), nil
}

// fail reverts to the last stable state if the generation is still
// current. The feed's items are untouched either way.
func (e *Engine) fail(gen uint64, op string, err error) (ViewState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.generation {
		if op == "initial" {
			loadsTotal.WithLabelValues("stale").Inc()
		} else {
			loadMoresTotal.WithLabelValues("stale").Inc()
		}
		return e.viewLocked(), ErrStaleLoad
	}
	e.clearCancelLocked()
	e.phase = e.stable

	if op == "initial" {
		loadsTotal.WithLabelValues("failed").Inc()
	} else {
		loadMoresTotal.WithLabelValues("failed").Inc()
	}
	e.logger.Warn().
		Err(err).
		Str("operation", op).
		Msg("Feed load failed, state reverted")

	return e.viewLocked(), err
}

func (e *Engine) clearCancelLocked() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

func (e *Engine) viewLocked() ViewState {
	return ViewState{
		Items:         slices.Clone(e.items),
		Loading:       e.phase.loading(),
		HasMore:       e.hasMore,
		HasHistory:    e.hasHistory,
		Page:          e.page,
		ScrollAnchors: slices.Clone(e.anchors),
		Phase:         e.phase,
	}
}
