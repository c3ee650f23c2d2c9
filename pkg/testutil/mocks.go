// Package testutil provides common testing utilities and mock implementations.
package testutil

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/R3E-Network/video_portal/supabase/client"
)

// SignToken issues an HS256 access token for userID, shaped like the ones the
// Supabase auth server hands out.
func SignToken(secret, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": "authenticated",
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

type mockUser struct {
	user     client.User
	password string
}

// MockAuth is an in-memory stand-in for the Supabase auth server. Access
// tokens it issues are real HS256 JWTs signed with the configured secret, so
// they pass the auth middleware.
type MockAuth struct {
	mu       sync.RWMutex
	secret   string
	byEmail  map[string]*mockUser
	byID     map[string]*mockUser
	refresh  map[string]string // refresh token -> user id
	signOuts int
}

// NewMockAuth creates a mock auth server signing tokens with secret.
func NewMockAuth(secret string) *MockAuth {
	return &MockAuth{
		secret:  secret,
		byEmail: make(map[string]*mockUser),
		byID:    make(map[string]*mockUser),
		refresh: make(map[string]string),
	}
}

// AddUser registers a confirmed user and returns its id.
func (m *MockAuth) AddUser(email, password string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addLocked(email, password, nil).user.ID
}

func (m *MockAuth) addLocked(email, password string, metadata map[string]any) *mockUser {
	u := &mockUser{
		user: client.User{
			ID:           uuid.NewString(),
			Email:        email,
			Role:         "authenticated",
			CreatedAt:    time.Now().UTC().Format(time.RFC3339),
			UserMetadata: metadata,
		},
		password: password,
	}
	m.byEmail[email] = u
	m.byID[u.user.ID] = u
	return u
}

// SignOuts reports how many sign-outs were received.
func (m *MockAuth) SignOuts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.signOuts
}

// SignUp creates a user and signs it in.
func (m *MockAuth) SignUp(_ context.Context, email, password string, metadata map[string]any) (*client.AuthResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[email]; ok {
		return nil, &client.APIError{StatusCode: http.StatusUnprocessableEntity, Message: "User already registered"}
	}
	return m.sessionLocked(m.addLocked(email, password, metadata))
}

// SignIn checks the password and issues a session.
func (m *MockAuth) SignIn(_ context.Context, email, password string) (*client.AuthResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byEmail[email]
	if !ok || u.password != password {
		return nil, &client.APIError{StatusCode: http.StatusBadRequest, Message: "Invalid login credentials"}
	}
	return m.sessionLocked(u)
}

// Refresh exchanges a refresh token. Refresh tokens are single use.
func (m *MockAuth) Refresh(_ context.Context, refreshToken string) (*client.AuthResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.refresh[refreshToken]
	if !ok {
		return nil, &client.APIError{StatusCode: http.StatusBadRequest, Message: "Invalid Refresh Token"}
	}
	delete(m.refresh, refreshToken)
	return m.sessionLocked(m.byID[id])
}

// SignOut always succeeds.
func (m *MockAuth) SignOut(context.Context, string) error {
	m.mu.Lock()
	m.signOuts++
	m.mu.Unlock()
	return nil
}

// GetUser resolves an access token issued by this mock.
func (m *MockAuth) GetUser(_ context.Context, accessToken string) (*client.User, error) {
	id, err := m.subject(accessToken)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, &client.APIError{StatusCode: http.StatusNotFound, Message: "User not found"}
	}
	user := u.user
	return &user, nil
}

// UpdateUser merges metadata into the user's metadata.
func (m *MockAuth) UpdateUser(_ context.Context, accessToken string, metadata map[string]any) (*client.User, error) {
	id, err := m.subject(accessToken)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, &client.APIError{StatusCode: http.StatusNotFound, Message: "User not found"}
	}
	if u.user.UserMetadata == nil {
		u.user.UserMetadata = make(map[string]any)
	}
	for k, v := range metadata {
		u.user.UserMetadata[k] = v
	}
	user := u.user
	return &user, nil
}

func (m *MockAuth) sessionLocked(u *mockUser) (*client.AuthResponse, error) {
	token, err := SignToken(m.secret, u.user.ID, time.Hour)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	refresh := uuid.NewString()
	m.refresh[refresh] = u.user.ID
	user := u.user
	return &client.AuthResponse{
		AccessToken:  token,
		TokenType:    "bearer",
		ExpiresIn:    3600,
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
		RefreshToken: refresh,
		User:         &user,
	}, nil
}

func (m *MockAuth) subject(accessToken string) (string, error) {
	token, err := jwt.Parse(accessToken, func(*jwt.Token) (interface{}, error) {
		return []byte(m.secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", &client.APIError{StatusCode: http.StatusUnauthorized, Message: "invalid JWT"}
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", &client.APIError{StatusCode: http.StatusUnauthorized, Message: "invalid JWT"}
	}
	return sub, nil
}
