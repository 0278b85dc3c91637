package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/gujimy/KVideo/pkg/feed"
	"github.com/gujimy/KVideo/pkg/history"
)

type createFeedRequest struct {
	ViewerID string `json:"viewer_id"`
}

type loadMoreRequest struct {
	Page int `json:"page"`
}

type addHistoryRequest struct {
	ViewerID string `json:"viewer_id"`
	ID       string `json:"id"`
	Title    string `json:"title"`
	Tag      string `json:"tag"`
	Type     string `json:"type"`
}

type feedResponse struct {
	FeedID string         `json:"feed_id"`
	State  feed.ViewState `json:"state"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAddHistory records one watch event. Tag and type may be empty;
// records without them are skipped by query generation but still count
// for deduplication.
func (s *Server) handleAddHistory(w http.ResponseWriter, r *http.Request) {
	var req addHistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ViewerID == "" || req.ID == "" || req.Title == "" {
		s.writeError(w, http.StatusBadRequest, "viewer_id, id and title are required")
		return
	}

	rec := history.Record{
		ID:        req.ID,
		Title:     req.Title,
		Tag:       req.Tag,
		Type:      req.Type,
		WatchedAt: time.Now(),
	}
	if err := s.store.Add(r.Context(), req.ViewerID, rec); err != nil {
		s.logger.Error().Err(err).Str("viewer_id", req.ViewerID).Msg("Failed to record watch event")
		s.writeError(w, http.StatusInternalServerError, "failed to record watch event")
		return
	}

	s.writeJSON(w, http.StatusCreated, rec)
}

// handleCreateFeed opens a feed session and runs its initial load.
func (s *Server) handleCreateFeed(w http.ResponseWriter, r *http.Request) {
	var req createFeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ViewerID == "" {
		s.writeError(w, http.StatusBadRequest, "viewer_id is required")
		return
	}

	engine, err := s.newEngine(req.ViewerID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to build feed engine")
		s.writeError(w, http.StatusInternalServerError, "failed to create feed")
		return
	}

	state, err := engine.Load(r.Context())
	if err != nil {
		s.logger.Warn().Err(err).Str("viewer_id", req.ViewerID).Msg("Initial feed load failed")
		s.writeError(w, http.StatusServiceUnavailable, "feed load failed")
		return
	}

	sess := &session{id: uuid.NewString(), viewerID: req.ViewerID, engine: engine}
	s.sessions.add(sess)
	s.logger.Info().
		Str("feed_id", sess.id).
		Str("viewer_id", req.ViewerID).
		Int("items", len(state.Items)).
		Msg("Feed session created")

	s.writeJSON(w, http.StatusCreated, feedResponse{FeedID: sess.id, State: state})
}

func (s *Server) handleGetFeed(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.get(chi.URLParam(r, "feedID"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "feed not found")
		return
	}
	s.writeJSON(w, http.StatusOK, feedResponse{FeedID: sess.id, State: sess.engine.View()})
}

// handleLoadMore fetches the next page for a feed session. A request that
// arrives while another page load is running is rejected, not queued.
func (s *Server) handleLoadMore(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.get(chi.URLParam(r, "feedID"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "feed not found")
		return
	}

	var req loadMoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Page < 1 {
		s.writeError(w, http.StatusBadRequest, "page must be >= 1")
		return
	}

	state, err := sess.engine.LoadMore(r.Context(), req.Page)
	switch {
	case errors.Is(err, feed.ErrLoadInFlight), errors.Is(err, feed.ErrStaleLoad):
		s.writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		s.writeError(w, http.StatusServiceUnavailable, "feed load failed")
		return
	}

	s.writeJSON(w, http.StatusOK, feedResponse{FeedID: sess.id, State: state})
}

func (s *Server) handleDeleteFeed(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "feedID")
	if !s.sessions.remove(id) {
		s.writeError(w, http.StatusNotFound, "feed not found")
		return
	}
	s.logger.Info().Str("feed_id", id).Msg("Feed session closed")
	w.WriteHeader(http.StatusNoContent)
}
