// Package testutil provides testing utilities for the KVideo feed engine.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// MockVideo is the JSON shape of one catalog item served by MockCatalog.
type MockVideo struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Cover string  `json:"cover"`
	Rate  float64 `json:"rate"`
	URL   string  `json:"url"`
}

// MockResponse defines a canned response for one source.
type MockResponse struct {
	StatusCode int
	Body       string
	Delay      time.Duration
}

// MockCatalog is a configurable mock catalog service for testing. Each
// (tag, type) source serves slices of its configured candidate pool
// according to the offset and limit parameters, the way the real search
// API pages through results.
type MockCatalog struct {
	server   *httptest.Server
	mu       sync.RWMutex
	sources  map[string][]MockVideo
	handlers map[string]http.HandlerFunc
	requests map[string]int

	// Tracking
	RequestCount int
	LastQuery    url.Values
}

func mockKey(tag, typ string) string {
	return tag + "/" + typ
}

// NewMockCatalog creates a new mock catalog server.
func NewMockCatalog() *MockCatalog {
	mock := &MockCatalog{
		sources:  make(map[string][]MockVideo),
		handlers: make(map[string]http.HandlerFunc),
		requests: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tag := r.URL.Query().Get("tag")
		typ := r.URL.Query().Get("type")
		key := mockKey(tag, typ)

		mock.mu.Lock()
		mock.RequestCount++
		mock.requests[key]++
		mock.LastQuery = r.URL.Query()
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[key]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r, key)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockCatalog) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockCatalog) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockCatalog) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.requests = make(map[string]int)
	m.LastQuery = nil
}

// SetVideos configures the candidate pool for a (tag, type) source.
func (m *MockCatalog) SetVideos(tag, typ string, videos []MockVideo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[mockKey(tag, typ)] = videos
}

// SetHandler sets a custom handler for a (tag, type) source.
func (m *MockCatalog) SetHandler(tag, typ string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[mockKey(tag, typ)] = handler
}

// SetResponse configures a canned response for a (tag, type) source.
func (m *MockCatalog) SetResponse(tag, typ string, resp MockResponse) {
	m.SetHandler(tag, typ, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the total number of requests made to the server.
func (m *MockCatalog) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// RequestsFor returns the number of requests made for a (tag, type) source.
func (m *MockCatalog) RequestsFor(tag, typ string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requests[mockKey(tag, typ)]
}

// defaultHandler serves a slice of the source's candidate pool.
func (m *MockCatalog) defaultHandler(w http.ResponseWriter, r *http.Request, key string) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 18
	}

	m.mu.RLock()
	pool := m.sources[key]
	m.mu.RUnlock()

	items := []MockVideo{}
	if offset < len(pool) {
		end := offset + limit
		if end > len(pool) {
			end = len(pool)
		}
		items = pool[offset:end]
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"code":  0,
		"items": items,
		"total": len(pool),
	})
}

// Videos generates a pool of n distinct videos titled "<prefix> <i>".
func Videos(prefix string, n int) []MockVideo {
	videos := make([]MockVideo, n)
	for i := range videos {
		videos[i] = MockVideo{
			ID:    fmt.Sprintf("%s-%d", prefix, i),
			Title: fmt.Sprintf("%s %d", prefix, i),
			Cover: fmt.Sprintf("https://img.kvideo.example/%s-%d.jpg", prefix, i),
			Rate:  7.5,
			URL:   fmt.Sprintf("https://kvideo.example/v/%s-%d", prefix, i),
		}
	}
	return videos
}

// NewUpstreamErrorResponse creates a payload with a non-zero business code.
func NewUpstreamErrorResponse(code int) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       fmt.Sprintf(`{"code": %d, "msg": "upstream unavailable"}`, code),
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "internal server error"}`,
	}
}

// NewMalformedResponse creates a 200 response whose body is not valid JSON.
func NewMalformedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"code": 0, "items": [`,
	}
}
