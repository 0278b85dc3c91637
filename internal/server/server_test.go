package server

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/gujimy/KVideo/internal/config"
	"github.com/gujimy/KVideo/internal/testutil"
	"github.com/gujimy/KVideo/pkg/feed"
	"github.com/gujimy/KVideo/pkg/history"
)

// newTestServer builds a server against a mock catalog. MaxPageStart 1 pins
// every generated query to offset 0, so the mock pools are paged
// deterministically.
func newTestServer(t *testing.T, mock *testutil.MockCatalog) (*Server, http.Handler) {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{
			SessionIdleTTL: 30 * time.Minute,
			SweepInterval:  time.Minute,
		},
		Catalog: config.CatalogConfig{
			BaseURL:        mock.URL(),
			UserAgent:      "KVideo-Feed-Test/1.0",
			Timeout:        5 * time.Second,
			MaxConcurrency: 4,
		},
		Feed: config.FeedConfig{
			MaxQueries:   3,
			MaxPageStart: 1,
			CacheTTL:     time.Minute,
			HistoryLimit: 50,
		},
	}

	srv, err := New(cfg, history.NewMemoryStore(0))
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	return srv, srv.Handler()
}

func performJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeFeed(t *testing.T, rec *httptest.ResponseRecorder) feedResponse {
	t.Helper()

	var resp feedResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode feed response: %v", err)
	}
	return resp
}

// seedViewerHistory records three watch events with distinct (tag, type)
// pairs, enough for query generation to fan out three sources.
func seedViewerHistory(t *testing.T, h http.Handler, viewerID string) {
	t.Helper()

	for i, rec := range []struct{ title, tag, typ string }{
		{"Watched Drama", "drama", "tv"},
		{"Watched Comedy", "comedy", "movie"},
		{"Watched Action", "action", "movie"},
	} {
		body := fmt.Sprintf(`{"viewer_id":%q,"id":"w-%d","title":%q,"tag":%q,"type":%q}`,
			viewerID, i, rec.title, rec.tag, rec.typ)
		resp := performJSON(t, h, http.MethodPost, "/api/history", body)
		if resp.Code != http.StatusCreated {
			t.Fatalf("Expected status 201 seeding history, got %d: %s", resp.Code, resp.Body.String())
		}
	}
}

func setDefaultPools(mock *testutil.MockCatalog, perSource int) {
	mock.SetVideos("action", "movie", testutil.Videos("act", perSource))
	mock.SetVideos("comedy", "movie", testutil.Videos("com", perSource))
	mock.SetVideos("drama", "tv", testutil.Videos("dra", perSource))
}

func assertUniqueFeedTitles(t *testing.T, items []feed.Item) {
	t.Helper()
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		key := strings.ToLower(strings.TrimSpace(it.Title))
		if _, dup := seen[key]; dup {
			t.Errorf("Duplicate title in feed: %q", it.Title)
		}
		seen[key] = struct{}{}
	}
}

func TestHandleHealth(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	_, h := newTestServer(t, mock)

	rec := performJSON(t, h, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("Expected ok status body, got %s", rec.Body.String())
	}
}

func TestHandleMetrics(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	_, h := newTestServer(t, mock)

	rec := performJSON(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "# HELP") {
		t.Error("Expected Prometheus exposition output")
	}
}

func TestHandleAddHistory(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	_, h := newTestServer(t, mock)

	rec := performJSON(t, h, http.MethodPost, "/api/history",
		`{"viewer_id":"viewer-1","id":"v-1","title":"Some Movie","tag":"action","type":"movie"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var stored history.Record
	if err := json.NewDecoder(rec.Body).Decode(&stored); err != nil {
		t.Fatalf("Failed to decode record: %v", err)
	}
	if stored.Title != "Some Movie" {
		t.Errorf("Expected title Some Movie, got %s", stored.Title)
	}
	if stored.WatchedAt.IsZero() {
		t.Error("Expected server-side watched_at timestamp")
	}
}

func TestHandleAddHistory_Validation(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	_, h := newTestServer(t, mock)

	tests := []struct {
		name string
		body string
	}{
		{"malformed JSON", `{"viewer_id":`},
		{"missing viewer", `{"id":"v-1","title":"Some Movie"}`},
		{"missing title", `{"viewer_id":"viewer-1","id":"v-1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := performJSON(t, h, http.MethodPost, "/api/history", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", rec.Code)
			}
		})
	}
}

func TestHandleCreateFeed_Flow(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	setDefaultPools(mock, 6)

	_, h := newTestServer(t, mock)
	seedViewerHistory(t, h, "viewer-1")

	rec := performJSON(t, h, http.MethodPost, "/api/feeds", `{"viewer_id":"viewer-1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decodeFeed(t, rec)
	if created.FeedID == "" {
		t.Fatal("Expected a feed ID")
	}
	if len(created.State.Items) != 18 {
		t.Errorf("Expected 18 items, got %d", len(created.State.Items))
	}
	if !created.State.HasMore {
		t.Error("Expected hasMore true after full initial page")
	}
	if created.State.Phase != feed.PhaseReady {
		t.Errorf("Expected phase ready, got %s", created.State.Phase)
	}
	assertUniqueFeedTitles(t, created.State.Items)

	rec = performJSON(t, h, http.MethodGet, "/api/feeds/"+created.FeedID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	fetched := decodeFeed(t, rec)
	if len(fetched.State.Items) != len(created.State.Items) {
		t.Errorf("Expected %d items on read, got %d", len(created.State.Items), len(fetched.State.Items))
	}

	rec = performJSON(t, h, http.MethodDelete, "/api/feeds/"+created.FeedID, "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", rec.Code)
	}

	rec = performJSON(t, h, http.MethodGet, "/api/feeds/"+created.FeedID, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 after delete, got %d", rec.Code)
	}
}

func TestHandleCreateFeed_Validation(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	_, h := newTestServer(t, mock)

	rec := performJSON(t, h, http.MethodPost, "/api/feeds", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without viewer_id, got %d", rec.Code)
	}

	rec = performJSON(t, h, http.MethodPost, "/api/feeds", `{"viewer_id":`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for malformed body, got %d", rec.Code)
	}
}

func TestHandleCreateFeed_InsufficientHistory(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	setDefaultPools(mock, 6)
	_, h := newTestServer(t, mock)

	rec := performJSON(t, h, http.MethodPost, "/api/history",
		`{"viewer_id":"viewer-new","id":"v-1","title":"Only Watch","tag":"action","type":"movie"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", rec.Code)
	}

	rec = performJSON(t, h, http.MethodPost, "/api/feeds", `{"viewer_id":"viewer-new"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeFeed(t, rec)
	if resp.State.HasHistory {
		t.Error("Expected hasHistory false for a single watch record")
	}
	if len(resp.State.Items) != 0 {
		t.Errorf("Expected empty feed, got %d items", len(resp.State.Items))
	}
	if mock.GetRequestCount() != 0 {
		t.Errorf("Expected no upstream requests, got %d", mock.GetRequestCount())
	}
}

// Upstream failures degrade to an empty feed, they never fail the request.
func TestHandleCreateFeed_UpstreamDown(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.SetResponse("action", "movie", testutil.NewServerErrorResponse())
	mock.SetResponse("comedy", "movie", testutil.NewServerErrorResponse())
	mock.SetResponse("drama", "tv", testutil.NewServerErrorResponse())

	_, h := newTestServer(t, mock)
	seedViewerHistory(t, h, "viewer-1")

	rec := performJSON(t, h, http.MethodPost, "/api/feeds", `{"viewer_id":"viewer-1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeFeed(t, rec)
	if len(resp.State.Items) != 0 {
		t.Errorf("Expected empty feed when every source fails, got %d items", len(resp.State.Items))
	}
	if resp.State.HasMore {
		t.Error("Expected hasMore false when every source fails")
	}
}

func TestHandleLoadMore(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	mock.SetVideos("action", "movie", testutil.Videos("act", 24))
	mock.SetVideos("comedy", "movie", testutil.Videos("com", 6))
	mock.SetVideos("drama", "tv", testutil.Videos("dra", 6))

	_, h := newTestServer(t, mock)
	seedViewerHistory(t, h, "viewer-1")

	created := decodeFeed(t, performJSON(t, h, http.MethodPost, "/api/feeds", `{"viewer_id":"viewer-1"}`))
	if len(created.State.Items) != 30 {
		t.Fatalf("Expected 30 items on initial load, got %d", len(created.State.Items))
	}

	rec := performJSON(t, h, http.MethodPost, "/api/feeds/"+created.FeedID+"/more", `{"page":1}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	more := decodeFeed(t, rec)
	if len(more.State.Items) != 36 {
		t.Errorf("Expected 36 items after page 1, got %d", len(more.State.Items))
	}
	if more.State.Page != 1 {
		t.Errorf("Expected page 1, got %d", more.State.Page)
	}
	if !more.State.HasMore {
		t.Error("Expected hasMore true after appending new items")
	}
	assertUniqueFeedTitles(t, more.State.Items)

	// Pools are drained; the next page exhausts the feed in place.
	rec = performJSON(t, h, http.MethodPost, "/api/feeds/"+created.FeedID+"/more", `{"page":2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	done := decodeFeed(t, rec)
	if len(done.State.Items) != 36 {
		t.Errorf("Expected items unchanged at 36, got %d", len(done.State.Items))
	}
	if done.State.HasMore {
		t.Error("Expected hasMore false once pools are drained")
	}
	if done.State.Phase != feed.PhaseExhausted {
		t.Errorf("Expected phase exhausted, got %s", done.State.Phase)
	}
}

func TestHandleLoadMore_Validation(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	setDefaultPools(mock, 6)

	_, h := newTestServer(t, mock)
	seedViewerHistory(t, h, "viewer-1")
	created := decodeFeed(t, performJSON(t, h, http.MethodPost, "/api/feeds", `{"viewer_id":"viewer-1"}`))

	rec := performJSON(t, h, http.MethodPost, "/api/feeds/"+created.FeedID+"/more", `{"page":0}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for page 0, got %d", rec.Code)
	}

	rec = performJSON(t, h, http.MethodPost, "/api/feeds/"+created.FeedID+"/more", `{"page":`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for malformed body, got %d", rec.Code)
	}

	rec = performJSON(t, h, http.MethodPost, "/api/feeds/nope/more", `{"page":1}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown feed, got %d", rec.Code)
	}
}

// A page request that lands while another is running is rejected with 409.
func TestHandleLoadMore_Conflict(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	setDefaultPools(mock, 6)

	_, h := newTestServer(t, mock)
	seedViewerHistory(t, h, "viewer-1")
	created := decodeFeed(t, performJSON(t, h, http.MethodPost, "/api/feeds", `{"viewer_id":"viewer-1"}`))

	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	mock.SetHandler("action", "movie", func(w http.ResponseWriter, r *http.Request) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Write([]byte(`{"code": 0, "items": []}`))
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		performJSON(t, h, http.MethodPost, "/api/feeds/"+created.FeedID+"/more", `{"page":1}`)
	}()

	<-entered
	rec := performJSON(t, h, http.MethodPost, "/api/feeds/"+created.FeedID+"/more", `{"page":1}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected status 409 while a page load is in flight, got %d", rec.Code)
	}

	close(release)
	wg.Wait()
}

func TestHandleGetFeed_NotFound(t *testing.T) {
	mock := testutil.NewMockCatalog()
	defer mock.Close()
	_, h := newTestServer(t, mock)

	rec := performJSON(t, h, http.MethodGet, "/api/feeds/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}

	rec = performJSON(t, h, http.MethodDelete, "/api/feeds/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}
