package client

import (
	"context"
	"fmt"
	"net/http"
)

// Auth returns an auth client.
func (c *Client) Auth() *AuthClient {
	return &AuthClient{client: c}
}

// AuthClient handles GoTrue authentication operations.
type AuthClient struct {
	client *Client
}

// AuthResponse is the response from token-issuing auth operations.
type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

// User represents a Supabase user.
type User struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	Phone            string         `json:"phone"`
	Role             string         `json:"role"`
	EmailConfirmedAt string         `json:"email_confirmed_at"`
	CreatedAt        string         `json:"created_at"`
	UpdatedAt        string         `json:"updated_at"`
	AppMetadata      map[string]any `json:"app_metadata"`
	UserMetadata     map[string]any `json:"user_metadata"`
}

// SignUp creates a new user carrying metadata in user_metadata.
//
// When email confirmation is enabled GoTrue answers with the bare user and no
// session; the returned AuthResponse then has an empty AccessToken.
func (a *AuthClient) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*AuthResponse, error) {
	payload := map[string]any{
		"email":    email,
		"password": password,
	}
	if len(metadata) > 0 {
		payload["data"] = metadata
	}

	resp, err := a.post(ctx, "/auth/v1/signup", payload, "")
	if err != nil {
		return nil, err
	}
	if err := resp.Error(); err != nil {
		return nil, err
	}

	var authResp AuthResponse
	if err := resp.JSON(&authResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if authResp.User == nil {
		var user User
		if err := resp.JSON(&user); err == nil && user.ID != "" {
			authResp.User = &user
		}
	}
	return &authResp, nil
}

// SignIn signs in a user with email and password.
func (a *AuthClient) SignIn(ctx context.Context, email, password string) (*AuthResponse, error) {
	return a.token(ctx, "password", map[string]any{
		"email":    email,
		"password": password,
	})
}

// Refresh exchanges a refresh token for a new session.
func (a *AuthClient) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	return a.token(ctx, "refresh_token", map[string]any{
		"refresh_token": refreshToken,
	})
}

func (a *AuthClient) token(ctx context.Context, grant string, payload map[string]any) (*AuthResponse, error) {
	resp, err := a.post(ctx, "/auth/v1/token?grant_type="+grant, payload, "")
	if err != nil {
		return nil, err
	}
	var authResp AuthResponse
	if err := resp.Decode(&authResp); err != nil {
		return nil, err
	}
	return &authResp, nil
}

// SignOut revokes the session behind accessToken.
func (a *AuthClient) SignOut(ctx context.Context, accessToken string) error {
	resp, err := a.post(ctx, "/auth/v1/logout", nil, accessToken)
	if err != nil {
		return err
	}
	return resp.Error()
}

// GetUser gets the user that owns accessToken.
func (a *AuthClient) GetUser(ctx context.Context, accessToken string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.client.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	a.client.setHeaders(req)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := a.client.do(req)
	if err != nil {
		return nil, err
	}
	var user User
	if err := resp.Decode(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser merges metadata into the user's user_metadata.
func (a *AuthClient) UpdateUser(ctx context.Context, accessToken string, metadata map[string]any) (*User, error) {
	req, err := a.client.newJSONRequest(ctx, http.MethodPut, a.client.baseURL+"/auth/v1/user", map[string]any{"data": metadata})
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := a.client.do(req)
	if err != nil {
		return nil, err
	}
	var user User
	if err := resp.Decode(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (a *AuthClient) post(ctx context.Context, path string, payload any, accessToken string) (*Response, error) {
	req, err := a.client.newJSONRequest(ctx, http.MethodPost, a.client.baseURL+path, payload)
	if err != nil {
		return nil, err
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	return a.client.do(req)
}
