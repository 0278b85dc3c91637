package feed

// Phase is the pagination controller's lifecycle state.
type Phase string

const (
	// PhaseIdle means no load has been attempted yet.
	PhaseIdle Phase = "idle"

	// PhaseLoadingInitial means the first page fetch is in flight.
	PhaseLoadingInitial Phase = "loading_initial"

	// PhaseReady means the item list is stable and more pages may exist.
	PhaseReady Phase = "ready"

	// PhaseLoadingMore means a next-page fetch is in flight.
	PhaseLoadingMore Phase = "loading_more"

	// PhaseExhausted means no further unique items are obtainable for the
	// current query set. Terminal until the feed is re-loaded.
	PhaseExhausted Phase = "exhausted"
)

func (p Phase) loading() bool {
	return p == PhaseLoadingInitial || p == PhaseLoadingMore
}

// ScrollAnchor marks where a fetched page begins in the item list. The
// visibility trigger watches the anchor of the latest page to decide when
// to request the next one.
type ScrollAnchor struct {
	// Index is the position in Items of the page's first item.
	Index int `json:"index"`

	// Page is the zero-based page number that produced it.
	Page int `json:"page"`
}

// ViewState is the renderable feed state handed to consumers. It is a
// value snapshot; mutating it does not affect the engine.
type ViewState struct {
	// Items is the interleaved, deduplicated feed in display order.
	Items []Item `json:"items"`

	// Loading reports whether a page-level operation is in flight.
	Loading bool `json:"loading"`

	// HasMore reports whether another page is worth requesting. False is
	// terminal for the current query set.
	HasMore bool `json:"has_more"`

	// HasHistory reports whether the viewer has enough watch history to
	// drive recommendations. Derived from history length alone,
	// independent of fetch state.
	HasHistory bool `json:"has_history"`

	// Page is the current page cursor (zero-based, last applied page).
	Page int `json:"page"`

	// ScrollAnchors lists where each fetched page begins in Items.
	ScrollAnchors []ScrollAnchor `json:"scroll_anchors,omitempty"`

	// Phase is the controller state the snapshot was taken in.
	Phase Phase `json:"phase"`
}
