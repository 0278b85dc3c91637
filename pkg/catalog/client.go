// Package catalog provides the client for the KVideo catalog search API:
// one paginated request per query descriptor with per-source graceful
// degradation, and a concurrent fan-out for fetching one page across the
// whole query set.
package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/gujimy/KVideo/pkg/logging"
	"github.com/gujimy/KVideo/pkg/query"
	"github.com/gujimy/KVideo/pkg/sourcehealth"
)

// PageSize is the number of items requested per source per page.
const PageSize = 18

// searchPath is the catalog search endpoint.
const searchPath = "/api/v1/search/videos"

// ErrorClass represents a classification of fetch failures.
type ErrorClass string

const (
	// ErrorClassNetwork represents transport and timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassHTTP represents non-200 upstream responses.
	ErrorClassHTTP ErrorClass = "http"

	// ErrorClassUpstream represents non-zero business codes in the payload.
	ErrorClassUpstream ErrorClass = "upstream"

	// ErrorClassDecode represents malformed response payloads.
	ErrorClassDecode ErrorClass = "decode"
)

// Video is one catalog item.
type Video struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Cover string  `json:"cover"`
	Rate  float64 `json:"rate"`
	URL   string  `json:"url"`
}

// Result is the outcome of one query's page fetch. A failing or cooled-down
// source yields an empty Videos list.
type Result struct {
	Label  string
	Videos []Video
}

// searchResponse is the catalog search API payload.
type searchResponse struct {
	Code  int     `json:"code"`
	Items []Video `json:"items"`
	Total int     `json:"total"`
}

// Client issues paginated search requests against the catalog service.
type Client struct {
	httpClient *http.Client
	config     Config
	health     *sourcehealth.Tracker
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the catalog service, e.g. "https://api.kvideo.example".
	BaseURL string

	// UserAgent header sent with every request.
	UserAgent string

	// Timeout per upstream request.
	Timeout time.Duration

	// Health gates sources that keep failing (optional).
	Health *sourcehealth.Tracker

	// HTTPClient overrides the default HTTP client (for testing).
	HTTPClient *http.Client
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:   baseURL,
		UserAgent: "KVideo-Feed/1.0",
		Timeout:   10 * time.Second,
	}
}

// New creates a new catalog client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		httpClient: httpClient,
		config:     cfg,
		health:     cfg.Health,
		logger:     logging.NewLogger("catalog-client"),
	}, nil
}

// FetchPage fetches one page of candidates for one query. The request offset
// is PageStart + page*PageSize. On any transport failure, non-success
// response, or malformed payload it returns an empty result for the source;
// it never returns an error.
func (c *Client) FetchPage(ctx context.Context, q query.Descriptor, page int) Result {
	res := Result{Label: q.Label}

	if c.health != nil && !c.health.Allow(q.Tag, q.Type) {
		catalogRequestsTotal.WithLabelValues(q.Type, "cooldown").Inc()
		return res
	}

	start := time.Now()
	defer func() {
		catalogRequestDuration.WithLabelValues(q.Type).Observe(time.Since(start).Seconds())
	}()

	offset := q.PageStart + page*PageSize

	params := url.Values{}
	params.Set("tag", q.Tag)
	params.Set("type", q.Type)
	params.Set("offset", strconv.Itoa(offset))
	params.Set("limit", strconv.Itoa(PageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.config.BaseURL+searchPath+"?"+params.Encode(), nil)
	if err != nil {
		c.fail(q, page, "network_error", &FetchError{Label: q.Label, Class: ErrorClassNetwork, Err: err})
		return res
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.fail(q, page, "network_error", &FetchError{Label: q.Label, Class: ErrorClassNetwork, Err: err})
		return res
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.fail(q, page, strconv.Itoa(resp.StatusCode),
			&FetchError{Label: q.Label, Class: ErrorClassHTTP, StatusCode: resp.StatusCode})
		return res
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.fail(q, page, "decode_error", &FetchError{Label: q.Label, Class: ErrorClassDecode, Err: err})
		return res
	}

	if payload.Code != 0 {
		c.fail(q, page, "upstream_error",
			&FetchError{Label: q.Label, Class: ErrorClassUpstream, Err: fmt.Errorf("upstream code %d", payload.Code)})
		return res
	}

	videos := make([]Video, 0, len(payload.Items))
	dropped := 0
	for _, v := range payload.Items {
		if v.ID == "" || v.Title == "" {
			dropped++
			continue
		}
		videos = append(videos, v)
	}
	if dropped > 0 {
		catalogItemsDroppedTotal.Add(float64(dropped))
	}

	if c.health != nil {
		c.health.Success(q.Tag, q.Type)
	}
	catalogRequestsTotal.WithLabelValues(q.Type, "200").Inc()

	c.logger.Debug().
		Str("label", q.Label).
		Int("page", page).
		Int("offset", offset).
		Int("items", len(videos)).
		Msg("Fetched catalog page")

	res.Videos = videos
	return res
}

// fail records one failed fetch: request metric, failure class metric,
// health tracking, and a warn log. The caller still returns an empty result.
func (c *Client) fail(q query.Descriptor, page int, status string, ferr *FetchError) {
	catalogRequestsTotal.WithLabelValues(q.Type, status).Inc()
	catalogFailuresTotal.WithLabelValues(string(ferr.Class)).Inc()
	if c.health != nil {
		c.health.Failure(q.Tag, q.Type)
	}

	c.logger.Warn().
		Err(ferr).
		Str("label", q.Label).
		Str("tag", q.Tag).
		Str("type", q.Type).
		Int("page", page).
		Str("error_class", string(ferr.Class)).
		Msg("Catalog fetch failed, source degraded to empty")
}
