package feed

import "errors"

var (
	// ErrLoadInFlight is returned when a page-level operation is already
	// running; the new request is dropped, not queued.
	ErrLoadInFlight = errors.New("load already in flight")

	// ErrStaleLoad is returned when a completed load finds the engine's
	// generation has moved on; its result was discarded.
	ErrStaleLoad = errors.New("stale load discarded")
)
