package sourcehealth

import (
	"math/rand"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/gujimy/KVideo/pkg/logging"
)

// Prometheus metrics for source health tracking.
var (
	sourceFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "source_failures_total",
		Help: "Total upstream source fetch failures by source",
	}, []string{"source"})

	sourceCooldownsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "source_cooldowns_total",
		Help: "Total number of cooldowns opened for failing sources",
	})

	sourceCooldownSkipsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "source_cooldown_skips_total",
		Help: "Total fetches skipped because the source was in cooldown",
	})

	sourcesInCooldown = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sources_in_cooldown",
		Help: "Current number of sources in cooldown",
	})
)

// Config holds the cooldown schedule configuration.
type Config struct {
	// FailureThreshold is the consecutive-failure count that opens a cooldown.
	FailureThreshold int

	// InitialCooldown is the cooldown duration at the threshold.
	InitialCooldown time.Duration

	// MaxCooldown caps the cooldown duration.
	MaxCooldown time.Duration

	// CooldownMultiplier grows the cooldown for each failure past the
	// threshold.
	CooldownMultiplier float64
}

// DefaultConfig returns the default cooldown schedule.
func DefaultConfig() Config {
	return Config{
		FailureThreshold:   DefaultFailureThreshold,
		InitialCooldown:    DefaultInitialCooldown,
		MaxCooldown:        DefaultMaxCooldown,
		CooldownMultiplier: 2.0,
	}
}

// Tracker monitors per-source failures and gates fetches during cooldowns.
// All state is in process memory; a restart starts every source healthy.
type Tracker struct {
	mu      sync.Mutex
	config  Config
	sources map[string]*SourceState
	logger  zerolog.Logger
}

// NewTracker creates a new source health tracker.
func NewTracker(cfg Config) *Tracker {
	def := DefaultConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.InitialCooldown <= 0 {
		cfg.InitialCooldown = def.InitialCooldown
	}
	if cfg.MaxCooldown <= 0 {
		cfg.MaxCooldown = def.MaxCooldown
	}
	if cfg.CooldownMultiplier <= 1 {
		cfg.CooldownMultiplier = def.CooldownMultiplier
	}

	return &Tracker{
		config:  cfg,
		sources: make(map[string]*SourceState),
		logger:  logging.NewLogger("source-health"),
	}
}

func sourceKey(tag, typ string) string {
	return tag + "/" + typ
}

// Allow reports whether the source may be fetched now. A source whose
// cooldown deadline has passed is allowed again; that fetch is the probe.
func (t *Tracker) Allow(tag, typ string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.sources[sourceKey(tag, typ)]
	if !ok {
		return true
	}

	now := time.Now()
	if st.InCooldown(now) {
		sourceCooldownSkipsTotal.Inc()
		t.logger.Debug().
			Str("source", sourceKey(tag, typ)).
			Dur("remaining", st.CooldownRemaining(now)).
			Msg("Source in cooldown, skipping fetch")
		return false
	}

	// Deadline passed: clear the cooldown but keep the failure count so a
	// failed probe re-opens a longer one.
	if !st.CooldownUntil.IsZero() {
		st.CooldownUntil = time.Time{}
		sourcesInCooldown.Dec()
	}
	return true
}

// Success clears the source's failure state.
func (t *Tracker) Success(tag, typ string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := sourceKey(tag, typ)
	st, ok := t.sources[key]
	if !ok {
		return
	}

	if st.InCooldown(time.Now()) {
		sourcesInCooldown.Dec()
	}
	delete(t.sources, key)

	t.logger.Info().
		Str("source", key).
		Int("failures", st.ConsecutiveFailures).
		Msg("Source recovered")
}

// Failure records one fetch failure. At the threshold it opens the source's
// cooldown; each further failure grows the next cooldown exponentially, with
// ±20% jitter so probes for sources that failed together spread out.
func (t *Tracker) Failure(tag, typ string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := sourceKey(tag, typ)
	st, ok := t.sources[key]
	if !ok {
		st = &SourceState{}
		t.sources[key] = st
	}

	now := time.Now()
	st.ConsecutiveFailures++
	st.LastFailure = now
	sourceFailuresTotal.WithLabelValues(key).Inc()

	if st.ConsecutiveFailures < t.config.FailureThreshold {
		return
	}

	cooldown := t.config.InitialCooldown
	for i := t.config.FailureThreshold; i < st.ConsecutiveFailures; i++ {
		cooldown = time.Duration(float64(cooldown) * t.config.CooldownMultiplier)
		if cooldown >= t.config.MaxCooldown {
			cooldown = t.config.MaxCooldown
			break
		}
	}

	// Add jitter (±20% randomness)
	jitter := time.Duration(float64(cooldown) * (0.8 + rand.Float64()*0.4))

	wasInCooldown := st.InCooldown(now)
	st.CooldownUntil = now.Add(jitter)
	if !wasInCooldown {
		sourcesInCooldown.Inc()
	}
	sourceCooldownsTotal.Inc()

	t.logger.Warn().
		Str("source", key).
		Int("failures", st.ConsecutiveFailures).
		Dur("cooldown", jitter).
		Msg("Source cooldown opened")
}

// State returns a copy of the source's current state.
func (t *Tracker) State(tag, typ string) SourceState {
	t.mu.Lock()
	defer t.mu.Unlock()

	if st, ok := t.sources[sourceKey(tag, typ)]; ok {
		return *st
	}
	return SourceState{}
}
