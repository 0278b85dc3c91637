package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "feed_sessions_active",
		Help: "Number of live feed sessions",
	})

	sessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_sessions_created_total",
		Help: "Total number of feed sessions created",
	})

	sessionsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_sessions_expired_total",
		Help: "Total number of feed sessions expired by the idle sweeper",
	})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests by route and status",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds by route",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "route"})
)
