package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/R3E-Network/video_portal/internal/logging"
	"github.com/R3E-Network/video_portal/supabase/client"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func generateTestToken(t *testing.T, secret, userID string, expired bool) string {
	claims := &Claims{
		Email: "test@example.com",
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(1 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	if expired {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-1 * time.Hour))
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return tokenString
}

func testLogger() *logging.Logger {
	return logging.New("test", "error", "json")
}

// echoUser writes the authenticated user id, or "anonymous".
func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := GetUserID(r.Context())
		if id == "" {
			id = "anonymous"
		}
		if id != "anonymous" && logging.GetAccessToken(r.Context()) == "" {
			id = "missing token"
		}
		w.Write([]byte(id))
	})
}

func serve(h http.Handler, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	m := NewAuthMiddleware(testSecret, nil, testLogger(), nil)
	token := generateTestToken(t, testSecret, "user-123", false)

	rr := serve(m.Handler(echoUser()), "Bearer "+token)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if rr.Body.String() != "user-123" {
		t.Fatalf("user = %q, want user-123", rr.Body.String())
	}
}

func TestAuthMiddleware_NoHeaderIsAnonymous(t *testing.T) {
	m := NewAuthMiddleware(testSecret, nil, testLogger(), nil)
	rr := serve(m.Handler(echoUser()), "")
	if rr.Body.String() != "anonymous" {
		t.Fatalf("user = %q, want anonymous", rr.Body.String())
	}
}

func TestAuthMiddleware_MalformedHeader(t *testing.T) {
	m := NewAuthMiddleware(testSecret, nil, testLogger(), nil)
	for _, header := range []string{"Basic abc", "Bearer", "Bearer   "} {
		rr := serve(m.Handler(echoUser()), header)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%q: status = %d, want 401", header, rr.Code)
		}
	}
}

func TestAuthMiddleware_RejectedTokensFallBackToAnonymous(t *testing.T) {
	m := NewAuthMiddleware(testSecret, nil, testLogger(), nil)
	cases := map[string]string{
		"expired":     generateTestToken(t, testSecret, "user-123", true),
		"wrong key":   generateTestToken(t, "another-secret-another-secret-1234", "user-123", false),
		"no subject":  generateTestToken(t, testSecret, "", false),
		"not a token": "garbage",
	}
	for name, token := range cases {
		rr := serve(m.Handler(echoUser()), "Bearer "+token)
		if rr.Body.String() != "anonymous" {
			t.Fatalf("%s: user = %q, want anonymous", name, rr.Body.String())
		}
	}
}

func TestAuthMiddleware_RejectsOtherAlgorithms(t *testing.T) {
	m := NewAuthMiddleware(testSecret, nil, testLogger(), nil)
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-123",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.validateToken(token); err == nil {
		t.Fatal("expected HS512 token to be rejected")
	}
}

type stubVerifier struct {
	calls int
}

func (s *stubVerifier) GetUser(_ context.Context, token string) (*client.User, error) {
	s.calls++
	if token != "opaque-good" {
		return nil, errors.New("invalid JWT")
	}
	return &client.User{ID: "remote-user"}, nil
}

func TestAuthMiddleware_VerifierFallback(t *testing.T) {
	verifier := &stubVerifier{}
	m := NewAuthMiddleware("", verifier, testLogger(), nil)

	rr := serve(m.Handler(echoUser()), "Bearer opaque-good")
	if rr.Body.String() != "remote-user" {
		t.Fatalf("user = %q, want remote-user", rr.Body.String())
	}
	rr = serve(m.Handler(echoUser()), "Bearer opaque-bad")
	if rr.Body.String() != "anonymous" {
		t.Fatalf("user = %q, want anonymous", rr.Body.String())
	}
	if verifier.calls != 2 {
		t.Fatalf("verifier calls = %d, want 2", verifier.calls)
	}
}

func TestAuthMiddleware_SkipPaths(t *testing.T) {
	verifier := &stubVerifier{}
	m := NewAuthMiddleware("", verifier, testLogger(), []string{"/health"})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Authorization", "Bearer opaque-good")
	rr := httptest.NewRecorder()
	m.Handler(echoUser()).ServeHTTP(rr, req)
	if verifier.calls != 0 {
		t.Fatalf("skip path should not verify tokens")
	}
}

func TestRequireUserID(t *testing.T) {
	handler := RequireUserID(echoUser())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := logging.WithAccessToken(logging.WithUserID(req.Context(), "u1"), "tok")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req.WithContext(ctx))
	if rr.Code != http.StatusOK || rr.Body.String() != "u1" {
		t.Fatalf("got %d %q", rr.Code, rr.Body.String())
	}
}

func TestAuthMiddleware_WebSocketQueryToken(t *testing.T) {
	m := NewAuthMiddleware(testSecret, nil, testLogger(), nil)
	token := generateTestToken(t, testSecret, "user-ws", false)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/uploads/x/ws?access_token="+token, nil)
	req.Header.Set("Upgrade", "websocket")
	rr := httptest.NewRecorder()
	m.Handler(echoUser()).ServeHTTP(rr, req)
	if rr.Body.String() != "user-ws" {
		t.Fatalf("user = %q, want user-ws", rr.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/videos?access_token="+token, nil)
	rr = httptest.NewRecorder()
	m.Handler(echoUser()).ServeHTTP(rr, req)
	if rr.Body.String() != "anonymous" {
		t.Fatalf("query token outside websocket handshakes should be ignored, got %q", rr.Body.String())
	}
}
