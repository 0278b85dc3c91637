// Package server wires the feed engine, history store, and catalog client
// into the session-scoped HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gujimy/KVideo/internal/config"
	"github.com/gujimy/KVideo/pkg/catalog"
	"github.com/gujimy/KVideo/pkg/feed"
	"github.com/gujimy/KVideo/pkg/history"
	"github.com/gujimy/KVideo/pkg/logging"
	"github.com/gujimy/KVideo/pkg/query"
	"github.com/gujimy/KVideo/pkg/snapcache"
	"github.com/gujimy/KVideo/pkg/sourcehealth"
)

// Server serves per-session recommendation feeds over HTTP.
type Server struct {
	config   *config.Config
	store    history.Store
	fanout   *catalog.Fanout
	sessions *sessionManager
	logger   zerolog.Logger
}

// New builds a server around the given history store.
func New(cfg *config.Config, store history.Store) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("history store is required")
	}

	health := sourcehealth.NewTracker(sourcehealth.DefaultConfig())
	client, err := catalog.New(catalog.Config{
		BaseURL:   cfg.Catalog.BaseURL,
		UserAgent: cfg.Catalog.UserAgent,
		Timeout:   cfg.Catalog.Timeout,
		Health:    health,
	})
	if err != nil {
		return nil, fmt.Errorf("catalog client: %w", err)
	}

	fanout := catalog.NewFanout(client, catalog.FanoutConfig{
		MaxConcurrency: cfg.Catalog.MaxConcurrency,
		Timeout:        cfg.Catalog.Timeout,
	})

	return &Server{
		config:   cfg,
		store:    store,
		fanout:   fanout,
		sessions: newSessionManager(cfg.Server.SessionIdleTTL),
		logger:   logging.NewLogger("server"),
	}, nil
}

// newEngine builds a feed engine for one viewer session. Each session gets
// its own generator (offset randomization is per feed instance) and its
// own single-slot snapshot cache.
func (s *Server) newEngine(viewerID string) (*feed.Engine, error) {
	gen := query.NewGenerator(query.GeneratorConfig{
		MaxQueries:   s.config.Feed.MaxQueries,
		MaxPageStart: s.config.Feed.MaxPageStart,
	})
	return feed.New(feed.Config{
		History:      s.store,
		ViewerID:     viewerID,
		Generator:    gen,
		Fetcher:      s.fanout,
		Cache:        snapcache.New[[]feed.Item](snapcache.Config{TTL: s.config.Feed.CacheTTL}),
		HistoryLimit: s.config.Feed.HistoryLimit,
	})
}

// Handler returns the chi-routed HTTP API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/history", s.handleAddHistory)
		r.Route("/feeds", func(r chi.Router) {
			r.Post("/", s.handleCreateFeed)
			r.Route("/{feedID}", func(r chi.Router) {
				r.Get("/", s.handleGetFeed)
				r.Post("/more", s.handleLoadMore)
				r.Delete("/", s.handleDeleteFeed)
			})
		})
	})

	return r
}

// Run serves until the context is cancelled, then shuts down gracefully.
// The idle-session sweeper runs alongside the listener.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         net.JoinHostPort(s.config.Server.Host, strconv.Itoa(s.config.Server.Port)),
		Handler:      s.Handler(),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(s.config.Server.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-ticker.C:
				if n := s.sessions.sweep(time.Now()); n > 0 {
					s.logger.Info().Int("expired", n).Int("active", s.sessions.len()).Msg("Swept idle feed sessions")
				}
			}
		}
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()
		s.logger.Info().Msg("Server shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// instrument records request metrics and an access log line.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
		httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())

		s.logger.Debug().
			Str("method", r.Method).
			Str("route", route).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}
