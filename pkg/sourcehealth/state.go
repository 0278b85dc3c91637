// Package sourcehealth tracks per-source fetch failures and applies a
// cooldown to sources that keep failing, so a dead upstream query stops
// consuming a network call on every page.
//
// A source in cooldown degrades to an empty candidate list exactly as a
// failing fetch would, so feed semantics are unchanged. Nothing probes in
// the background; the first consumer-triggered fetch at or after the
// cooldown deadline is the probe.
package sourcehealth

import (
	"time"
)

// Default cooldown schedule values.
const (
	// DefaultFailureThreshold opens a cooldown once this many consecutive
	// failures accumulate for one source.
	DefaultFailureThreshold = 3

	// DefaultInitialCooldown is the first cooldown duration.
	DefaultInitialCooldown = 30 * time.Second

	// DefaultMaxCooldown caps the cooldown duration.
	DefaultMaxCooldown = 10 * time.Minute
)

// SourceState represents the health of one upstream query source.
type SourceState struct {
	// ConsecutiveFailures counts fetch failures since the last success.
	ConsecutiveFailures int

	// CooldownUntil is when fetches may resume. Zero when no cooldown is
	// active.
	CooldownUntil time.Time

	// LastFailure is when the source last failed.
	LastFailure time.Time
}

// InCooldown returns true if the source should not be fetched at t.
func (s *SourceState) InCooldown(t time.Time) bool {
	return !s.CooldownUntil.IsZero() && t.Before(s.CooldownUntil)
}

// CooldownRemaining returns the duration until fetches may resume.
// Returns 0 if no cooldown is active or the deadline has passed.
func (s *SourceState) CooldownRemaining(t time.Time) time.Duration {
	if s.CooldownUntil.IsZero() {
		return 0
	}
	remaining := s.CooldownUntil.Sub(t)
	if remaining < 0 {
		return 0
	}
	return remaining
}
