// Package catalog reads videos and channels from the YouTube Data API v3 and
// turns them into display-ready values.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/R3E-Network/video_portal/internal/app/metrics"
	"github.com/R3E-Network/video_portal/internal/httputil"
	"github.com/R3E-Network/video_portal/pkg/logger"
)

const (
	DefaultBaseURL    = "https://www.googleapis.com/youtube/v3"
	DefaultRegion     = "US"
	DefaultMaxResults = 50
	// MaxResults is the Data API page size ceiling.
	MaxResults = 50
)

// ErrNotFound is returned when a video or channel id matches nothing.
var ErrNotFound = errors.New("not found")

// APIError is an error reported by the Data API in its error envelope.
type APIError struct {
	StatusCode int
	Message    string
	Reason     string
}

func (e *APIError) Error() string { return e.Message }

// Config configures the catalog client.
type Config struct {
	BaseURL        string
	APIKey         string
	FallbackAPIKey string
	HTTPClient     *http.Client
	Cache          *Cache
	Logger         *logger.Logger
	Now            func() time.Time
}

// Client is the catalog client.
type Client struct {
	baseURL    string
	keys       []string
	httpClient *http.Client
	cache      *Cache
	log        *logger.Logger
	now        func() time.Time
}

// New creates a catalog client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("catalog API key is required")
	}
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewDefault("catalog")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	keys := []string{cfg.APIKey}
	if cfg.FallbackAPIKey != "" && cfg.FallbackAPIKey != cfg.APIKey {
		keys = append(keys, cfg.FallbackAPIKey)
	}
	return &Client{
		baseURL:    base,
		keys:       keys,
		httpClient: httpClient,
		cache:      cfg.Cache,
		log:        log,
		now:        now,
	}, nil
}

// Search lists videos matching query. An empty query lists videos without a
// keyword, which is how category browsing works.
func (c *Client) Search(ctx context.Context, query string, maxResults int, pageToken string) (Page, error) {
	params := searchParams(maxResults, pageToken)
	params.Set("q", query)
	return c.listPage(ctx, "search", params)
}

// Shorts lists short-form videos.
func (c *Client) Shorts(ctx context.Context, maxResults int, pageToken string) (Page, error) {
	params := searchParams(maxResults, pageToken)
	params.Set("videoDuration", "short")
	params.Set("q", "shorts")
	return c.listPage(ctx, "search", params)
}

// Trending lists the most popular videos for regionCode (US when empty).
func (c *Client) Trending(ctx context.Context, regionCode string, maxResults int, pageToken string) (Page, error) {
	return c.listPage(ctx, "videos", trendingParams(regionCode, maxResults, pageToken))
}

// RefreshTrending fetches the first trending page for regionCode and replaces
// the cached copy, bypassing any cached response.
func (c *Client) RefreshTrending(ctx context.Context, regionCode string) error {
	params := trendingParams(regionCode, DefaultMaxResults, "")
	var resp listResponse
	if err := c.get(ctx, "videos", params, &resp); err != nil {
		return err
	}
	c.cache.Set(ctx, CacheKey("videos", params.Encode()), &resp)
	return nil
}

func trendingParams(regionCode string, maxResults int, pageToken string) url.Values {
	if regionCode == "" {
		regionCode = DefaultRegion
	}
	params := url.Values{}
	params.Set("part", "snippet,statistics")
	params.Set("chart", "mostPopular")
	params.Set("regionCode", strings.ToUpper(regionCode))
	params.Set("maxResults", strconv.Itoa(clampMaxResults(maxResults)))
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}
	return params
}

// Video fetches one video with statistics and content details.
func (c *Client) Video(ctx context.Context, id string) (Video, error) {
	if strings.TrimSpace(id) == "" {
		return Video{}, fmt.Errorf("video id is required")
	}
	params := url.Values{}
	params.Set("part", "snippet,statistics,contentDetails")
	params.Set("id", id)

	var resp listResponse
	if err := c.cachedGet(ctx, "videos", params, &resp); err != nil {
		return Video{}, err
	}
	if len(resp.Items) == 0 {
		return Video{}, fmt.Errorf("video %s: %w", id, ErrNotFound)
	}
	return resp.Items[0].video(c.now()), nil
}

// Channel fetches one channel with statistics.
func (c *Client) Channel(ctx context.Context, id string) (Channel, error) {
	if strings.TrimSpace(id) == "" {
		return Channel{}, fmt.Errorf("channel id is required")
	}
	params := url.Values{}
	params.Set("part", "snippet,statistics")
	params.Set("id", id)

	var resp listResponse
	if err := c.cachedGet(ctx, "channels", params, &resp); err != nil {
		return Channel{}, err
	}
	if len(resp.Items) == 0 {
		return Channel{}, fmt.Errorf("channel %s: %w", id, ErrNotFound)
	}
	return resp.Items[0].channel(), nil
}

// ChannelVideos lists videos for a channel page by searching for the
// channel's title.
func (c *Client) ChannelVideos(ctx context.Context, channelID string, maxResults int, pageToken string) (Page, error) {
	ch, err := c.Channel(ctx, channelID)
	if err != nil {
		return Page{}, err
	}
	return c.Search(ctx, "channel:"+ch.Title, maxResults, pageToken)
}

func searchParams(maxResults int, pageToken string) url.Values {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("maxResults", strconv.Itoa(clampMaxResults(maxResults)))
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}
	return params
}

func clampMaxResults(n int) int {
	if n <= 0 {
		return DefaultMaxResults
	}
	if n > MaxResults {
		return MaxResults
	}
	return n
}

func (c *Client) listPage(ctx context.Context, endpoint string, params url.Values) (Page, error) {
	var resp listResponse
	if err := c.cachedGet(ctx, endpoint, params, &resp); err != nil {
		return Page{}, err
	}
	return resp.page(c.now()), nil
}

// cachedGet serves the raw response from cache, or fetches and caches it.
// Raw responses are cached so display strings like "3 hours ago" stay fresh.
func (c *Client) cachedGet(ctx context.Context, endpoint string, params url.Values, dst *listResponse) error {
	key := CacheKey(endpoint, params.Encode())
	if c.cache.Get(ctx, key, dst) {
		return nil
	}
	if err := c.get(ctx, endpoint, params, dst); err != nil {
		return err
	}
	c.cache.Set(ctx, key, dst)
	return nil
}

// get calls the API, moving on to the fallback key when the primary key is
// rejected with 403 (quota exhausted or key restricted).
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, dst *listResponse) error {
	var lastErr error
	for i, key := range c.keys {
		start := time.Now()
		err := c.getWithKey(ctx, endpoint, params, key, dst)
		metrics.RecordCatalogRequest(endpoint, time.Since(start), err)
		if err == nil {
			return nil
		}
		lastErr = err

		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusForbidden {
			return err
		}
		if i+1 < len(c.keys) {
			c.log.WithError(err).WithField("endpoint", endpoint).Warn("catalog key rejected, trying fallback key")
		}
	}
	return lastErr
}

func (c *Client) getWithKey(ctx context.Context, endpoint string, params url.Values, key string, dst *listResponse) error {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("key", key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("catalog %s: %w", endpoint, err)
	}

	err = httputil.DecodeResponse(resp, dst)
	var statusErr *httputil.StatusError
	if errors.As(err, &statusErr) {
		return parseAPIError(statusErr)
	}
	if err != nil {
		return fmt.Errorf("catalog %s: %w", endpoint, err)
	}
	return nil
}

// parseAPIError pulls error.message (and the first reason) out of the
// Data API error envelope.
func parseAPIError(se *httputil.StatusError) *APIError {
	apiErr := &APIError{StatusCode: se.StatusCode}
	if gjson.Valid(se.Body) {
		doc := gjson.Parse(se.Body)
		apiErr.Message = doc.Get("error.message").String()
		apiErr.Reason = doc.Get("error.errors.0.reason").String()
	}
	if apiErr.Message == "" {
		apiErr.Message = fmt.Sprintf("catalog request failed with status %d", se.StatusCode)
	}
	return apiErr
}
