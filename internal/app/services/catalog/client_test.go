package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/R3E-Network/video_portal/pkg/logger"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

const searchBody = `{
  "nextPageToken": "CDIQAA",
  "pageInfo": {"totalResults": 1000000},
  "items": [
    {"id": {"kind": "youtube#video", "videoId": "vid1"},
     "snippet": {"title": "Go in 100 seconds", "channelId": "ch1", "channelTitle": "Fireship",
                 "publishedAt": "2024-06-01T09:00:00Z",
                 "thumbnails": {"default": {"url": "d.jpg"}, "medium": {"url": "m.jpg"}, "high": {"url": "h.jpg"}}}}
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc, fallback string) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(Config{
		BaseURL:        srv.URL,
		APIKey:         "primary",
		FallbackAPIKey: fallback,
		Logger:         logger.NewDiscard(),
		Now:            func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestSearchBuildsRequestAndMapsPage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if q.Get("part") != "snippet" || q.Get("type") != "video" || q.Get("q") != "golang tips" {
			t.Errorf("query = %v", q)
		}
		if q.Get("maxResults") != "50" || q.Get("pageToken") != "tok" || q.Get("key") != "primary" {
			t.Errorf("query = %v", q)
		}
		_, _ = w.Write([]byte(searchBody))
	}, "")

	page, err := c.Search(context.Background(), "golang tips", 500, "tok")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if page.NextPageToken != "CDIQAA" || page.TotalResults != 1000000 || len(page.Items) != 1 {
		t.Fatalf("page = %+v", page)
	}
	v := page.Items[0]
	if v.ID != "vid1" || v.Thumbnails.Medium != "m.jpg" || v.PublishedAgo != "3 hours ago" || v.Views != "0" {
		t.Fatalf("video = %+v", v)
	}
}

func TestShortsAndTrendingParameters(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch r.URL.Path {
		case "/search":
			if q.Get("videoDuration") != "short" || q.Get("q") != "shorts" || q.Get("maxResults") != "10" {
				t.Errorf("shorts query = %v", q)
			}
		case "/videos":
			if q.Get("chart") != "mostPopular" || q.Get("regionCode") != "US" || q.Get("part") != "snippet,statistics" {
				t.Errorf("trending query = %v", q)
			}
		}
		_, _ = w.Write([]byte(`{"items": []}`))
	}, "")

	if _, err := c.Shorts(context.Background(), 10, ""); err != nil {
		t.Fatalf("Shorts: %v", err)
	}
	page, err := c.Trending(context.Background(), "", 0, "")
	if err != nil {
		t.Fatalf("Trending: %v", err)
	}
	if page.Items == nil || len(page.Items) != 0 {
		t.Fatalf("expected empty non-nil items, got %#v", page.Items)
	}
}

func TestVideoDetailAndNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") == "missing" {
			_, _ = w.Write([]byte(`{"items": []}`))
			return
		}
		_, _ = w.Write([]byte(`{"items": [{"id": "vid1",
			"snippet": {"title": "t", "publishedAt": "2024-05-31T12:00:00Z"},
			"statistics": {"viewCount": "1534000", "likeCount": "12000"},
			"contentDetails": {"duration": "PT4M13S"}}]}`))
	}, "")

	v, err := c.Video(context.Background(), "vid1")
	if err != nil {
		t.Fatalf("Video: %v", err)
	}
	if v.Views != "1.5M" || v.DurationText != "4:13" || v.PublishedAgo != "1 days ago" {
		t.Fatalf("video = %+v", v)
	}

	if _, err := c.Video(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestChannelVideosSearchesByTitle(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/channels":
			_, _ = w.Write([]byte(`{"items": [{"id": "ch1", "snippet": {"title": "Fireship", "customUrl": "@fireship"},
				"statistics": {"subscriberCount": "3100000", "videoCount": "700", "viewCount": "400000000"}}]}`))
		case "/search":
			if got := r.URL.Query().Get("q"); got != "channel:Fireship" {
				t.Errorf("q = %q", got)
			}
			_, _ = w.Write([]byte(searchBody))
		}
	}, "")

	ch, err := c.Channel(context.Background(), "ch1")
	if err != nil {
		t.Fatalf("Channel: %v", err)
	}
	if ch.Subscribers != "3.1M" || ch.CustomURL != "@fireship" {
		t.Fatalf("channel = %+v", ch)
	}
	page, err := c.ChannelVideos(context.Background(), "ch1", 0, "")
	if err != nil || len(page.Items) != 1 {
		t.Fatalf("ChannelVideos = %+v, %v", page, err)
	}
}

func TestQuotaErrorFallsBackToSecondKey(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Query().Get("key") == "primary" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error": {"code": 403, "message": "quota exceeded", "errors": [{"reason": "quotaExceeded"}]}}`))
			return
		}
		_, _ = w.Write([]byte(searchBody))
	}, "secondary")

	page, err := c.Search(context.Background(), "x", 5, "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(page.Items) != 1 || calls != 2 {
		t.Fatalf("items=%d calls=%d", len(page.Items), calls)
	}
}

func TestErrorMessageComesFromEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"code": 400, "message": "Invalid page token.", "errors": [{"reason": "invalidPageToken"}]}}`))
	}, "secondary")

	_, err := c.Search(context.Background(), "x", 5, "bogus")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T %v", err, err)
	}
	if apiErr.Error() != "Invalid page token." || apiErr.Reason != "invalidPageToken" {
		t.Fatalf("apiErr = %+v", apiErr)
	}
}

func TestResponsesAreCached(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(searchBody))
	}))
	defer srv.Close()

	cache := NewCache(context.Background(), CacheConfig{TTL: time.Minute}, logger.NewDiscard())
	c, err := New(Config{BaseURL: srv.URL, APIKey: "k", Cache: cache, Logger: logger.NewDiscard()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := c.Search(context.Background(), "cached", 10, ""); err != nil {
			t.Fatalf("Search: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("upstream calls = %d, want 1", calls)
	}

	if err := c.RefreshTrending(context.Background(), "gb"); err != nil {
		t.Fatalf("RefreshTrending: %v", err)
	}
	if _, err := c.Trending(context.Background(), "GB", 0, ""); err != nil {
		t.Fatalf("Trending: %v", err)
	}
	if calls != 2 {
		t.Fatalf("trending should be served from the warmed cache, calls = %d", calls)
	}
}

func TestNewRequiresKey(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error without API key")
	}
}
