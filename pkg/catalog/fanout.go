package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gujimy/KVideo/pkg/logging"
	"github.com/gujimy/KVideo/pkg/query"
)

// PageFetcher is the interface the fan-out uses for single-source fetching.
type PageFetcher interface {
	// FetchPage fetches one page of candidates for one query.
	FetchPage(ctx context.Context, q query.Descriptor, page int) Result
}

// FanoutConfig holds fan-out configuration.
type FanoutConfig struct {
	// MaxConcurrency is the maximum number of parallel source fetches.
	MaxConcurrency int

	// Timeout per source fetch. Zero applies no deadline beyond the
	// caller's context.
	Timeout time.Duration
}

// DefaultFanoutConfig returns safe default configuration.
func DefaultFanoutConfig() FanoutConfig {
	return FanoutConfig{
		MaxConcurrency: 4,
		Timeout:        10 * time.Second,
	}
}

// Fanout fetches the same page number across a whole query set concurrently.
type Fanout struct {
	fetcher PageFetcher
	config  FanoutConfig
	logger  zerolog.Logger
}

// NewFanout creates a new fan-out over the given fetcher.
func NewFanout(fetcher PageFetcher, cfg FanoutConfig) *Fanout {
	def := DefaultFanoutConfig()
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = def.MaxConcurrency
	}

	return &Fanout{
		fetcher: fetcher,
		config:  cfg,
		logger:  logging.NewLogger("catalog-fanout"),
	}
}

// FetchAll fetches the page from every query concurrently. The returned
// slice is indexed like queries, so interleaving stays deterministic no
// matter which fetch finished first. A failing source contributes its empty
// result; the join itself never fails.
func (f *Fanout) FetchAll(ctx context.Context, queries []query.Descriptor, page int) []Result {
	start := time.Now()
	results := make([]Result, len(queries))

	sem := make(chan struct{}, f.config.MaxConcurrency)
	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func(i int, q query.Descriptor) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			fetchCtx := ctx
			if f.config.Timeout > 0 {
				var cancel context.CancelFunc
				fetchCtx, cancel = context.WithTimeout(ctx, f.config.Timeout)
				defer cancel()
			}

			// Workers write distinct indices, no mutex needed.
			results[i] = f.fetcher.FetchPage(fetchCtx, q, page)
		}(i, q)
	}
	wg.Wait()

	total := 0
	for _, r := range results {
		total += len(r.Videos)
	}
	catalogFanoutDuration.Observe(time.Since(start).Seconds())

	f.logger.Debug().
		Int("page", page).
		Int("sources", len(queries)).
		Int("items", total).
		Dur("duration", time.Since(start)).
		Msg("Page fan-out complete")

	return results
}
