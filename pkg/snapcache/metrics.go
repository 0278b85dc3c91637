package snapcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snapshot_cache_hits_total",
		Help: "Total number of snapshot cache hits",
	})

	cacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapshot_cache_misses_total",
		Help: "Total number of snapshot cache misses by reason",
	}, []string{"reason"})

	cacheStores = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snapshot_cache_stores_total",
		Help: "Total number of snapshots stored",
	})

	cacheReplacements = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snapshot_cache_replacements_total",
		Help: "Total number of snapshots replaced by a different key",
	})

	cacheAppends = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snapshot_cache_appends_total",
		Help: "Total number of in-place snapshot updates",
	})
)
