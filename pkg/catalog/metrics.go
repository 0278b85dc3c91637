package catalog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for catalog fetches.
var (
	catalogRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_requests_total",
		Help: "Total catalog search requests by content type and status",
	}, []string{"type", "status"})

	catalogRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_request_duration_seconds",
		Help:    "Catalog search request duration in seconds by content type",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"type"})

	catalogFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_failures_total",
		Help: "Total catalog fetch failures by error class",
	}, []string{"class"})

	catalogItemsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_items_dropped_total",
		Help: "Total catalog items dropped for missing id or title",
	})

	catalogFanoutDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_fanout_duration_seconds",
		Help:    "Duration of one page fan-out across all sources",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})
)
