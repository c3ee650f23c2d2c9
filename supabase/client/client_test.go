package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(Config{URL: srv.URL, APIKey: "anon-key"})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c
}

func TestNewRequiresURLAndKey(t *testing.T) {
	if _, err := New(Config{APIKey: "k"}); err == nil {
		t.Fatal("expected error without URL")
	}
	if _, err := New(Config{URL: "http://x"}); err == nil {
		t.Fatal("expected error without APIKey")
	}
}

func TestSelectBuildsPostgRESTQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/video_history" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("user_id") != "eq.u 1" || q.Get("order") != "viewed_at.desc" || q.Get("limit") != "10" || q.Get("select") != "*" {
			t.Errorf("query = %v", q)
		}
		if r.Header.Get("apikey") != "anon-key" || r.Header.Get("Authorization") != "Bearer user-token" {
			t.Errorf("headers = %v", r.Header)
		}
		_, _ = w.Write([]byte(`[{"video_id":"v1"}]`))
	})

	resp, err := c.WithToken("user-token").From("video_history").
		Select("*").Eq("user_id", "u 1").Order("viewed_at", false).Limit(10).
		Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	var rows []map[string]string
	if err := resp.Decode(&rows); err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if len(rows) != 1 || rows[0]["video_id"] != "v1" {
		t.Fatalf("rows = %v", rows)
	}
}

func TestUpsertSetsConflictTargetAndPreference(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if got := r.URL.Query().Get("on_conflict"); got != "user_id,video_id" {
			t.Errorf("on_conflict = %q", got)
		}
		if got := r.Header.Get("Prefer"); got != "resolution=merge-duplicates,return=representation" {
			t.Errorf("Prefer = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		var row map[string]string
		_ = json.Unmarshal(body, &row)
		if row["video_id"] != "v1" {
			t.Errorf("body = %s", body)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`[]`))
	})

	resp, err := c.From("video_likes").Upsert("user_id,video_id").
		ExecuteInsert(context.Background(), map[string]string{"video_id": "v1"})
	if err != nil || resp.Error() != nil {
		t.Fatalf("ExecuteInsert() = %v / %v", err, resp.Error())
	}
}

func TestSingleNoRowsIsDetected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/vnd.pgrst.object+json" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		w.WriteHeader(http.StatusNotAcceptable)
		_, _ = w.Write([]byte(`{"code":"PGRST116","message":"JSON object requested, multiple (or no) rows returned"}`))
	})

	resp, err := c.From("subscriptions").Select("*").Eq("user_id", "u1").Single().Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	err = resp.Decode(&struct{}{})
	if !IsNoRows(err) {
		t.Fatalf("IsNoRows(%v) = false", err)
	}
	if StatusCode(err) != http.StatusNotAcceptable {
		t.Fatalf("StatusCode = %d", StatusCode(err))
	}
}

func TestAuthSignUpCarriesMetadata(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/signup" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var payload struct {
			Email string         `json:"email"`
			Data  map[string]any `json:"data"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if payload.Email != "a@b.c" || payload.Data["username"] != "alice" {
			t.Errorf("payload = %+v", payload)
		}
		_, _ = w.Write([]byte(`{"id":"u1","email":"a@b.c","user_metadata":{"username":"alice"}}`))
	})

	resp, err := c.Auth().SignUp(context.Background(), "a@b.c", "secret1", map[string]any{"username": "alice"})
	if err != nil {
		t.Fatalf("SignUp() error: %v", err)
	}
	if resp.AccessToken != "" || resp.User == nil || resp.User.ID != "u1" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestAuthErrorsAreParsed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("grant_type") != "password" {
			t.Errorf("grant_type = %q", r.URL.Query().Get("grant_type"))
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
	})

	_, err := c.Auth().SignIn(context.Background(), "a@b.c", "wrong")
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("err = %T %v", err, err)
	}
	if apiErr.Code != "invalid_grant" || apiErr.Message != "Invalid login credentials" {
		t.Fatalf("apiErr = %+v", apiErr)
	}
}

func TestAuthUserEndpointsUseCallerToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		switch r.Method + " " + r.URL.Path {
		case "GET /auth/v1/user", "PUT /auth/v1/user":
			_, _ = w.Write([]byte(`{"id":"u1","user_metadata":{"username":"bob"}}`))
		case "POST /auth/v1/logout":
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	})

	user, err := c.Auth().GetUser(context.Background(), "tok")
	if err != nil || user.ID != "u1" {
		t.Fatalf("GetUser() = %+v, %v", user, err)
	}
	user, err = c.Auth().UpdateUser(context.Background(), "tok", map[string]any{"username": "bob"})
	if err != nil || user.UserMetadata["username"] != "bob" {
		t.Fatalf("UpdateUser() = %+v, %v", user, err)
	}
	if err := c.Auth().SignOut(context.Background(), "tok"); err != nil {
		t.Fatalf("SignOut() error: %v", err)
	}
}
