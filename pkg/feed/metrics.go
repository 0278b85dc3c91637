package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_loads_total",
		Help: "Total number of initial feed loads by result",
	}, []string{"result"})

	loadMoresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_load_mores_total",
		Help: "Total number of load-more attempts by result",
	}, []string{"result"})

	itemsAppended = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_items_appended_total",
		Help: "Total number of items appended to feeds",
	})

	duplicatesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_duplicates_dropped_total",
		Help: "Total number of candidates dropped as duplicate titles by stage",
	}, []string{"stage"})

	exhaustionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_exhaustions_total",
		Help: "Total number of feeds that reached exhaustion",
	})

	loadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "feed_load_duration_seconds",
		Help:    "Feed page operation duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"operation"})
)
