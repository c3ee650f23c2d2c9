package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
)

func TestInstrumentHandlerUsesRouteTemplate(t *testing.T) {
	router := mux.NewRouter()
	router.Use(InstrumentHandler)
	router.HandleFunc("/api/v1/videos/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/videos/abc123", nil))

	out := httptest.NewRecorder()
	Handler().ServeHTTP(out, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(out.Body.String(), `path="/api/v1/videos/{id}",status="418"`) {
		t.Fatalf("expected templated path label, got:\n%s", out.Body.String())
	}
	if strings.Contains(out.Body.String(), "abc123") {
		t.Fatal("raw id leaked into labels")
	}
}

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                   "/",
		"/":                  "/",
		"/health":            "/health",
		"/api/v1/videos/abc": "/api/v1",
		"/static/js/app.js/": "/static/js",
	}
	for in, want := range cases {
		if got := canonicalPath(in); got != want {
			t.Errorf("canonicalPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRecordersAndHandler(t *testing.T) {
	RecordCatalogRequest("search", 20*time.Millisecond, nil)
	RecordCacheLookup("l1", true)
	RecordWarmup("US", true)
	UploadStarted()
	UploadFinished()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, name := range []string{
		"video_portal_catalog_upstream_requests_total",
		"video_portal_cache_lookups_total",
		"video_portal_catalog_warmup_runs_total",
		"video_portal_uploads_active",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}
