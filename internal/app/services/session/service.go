// Package session signs users in and out against the auth provider and keeps
// their public profile row in step with the provider's user metadata.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/R3E-Network/video_portal/internal/app/domain/profile"
	"github.com/R3E-Network/video_portal/internal/app/storage"
	"github.com/R3E-Network/video_portal/pkg/logger"
	"github.com/R3E-Network/video_portal/supabase/client"
)

// MinPasswordLength is the shortest password accepted on sign-up and sign-in.
const MinPasswordLength = 6

var (
	// ErrInvalidInput wraps request validation failures.
	ErrInvalidInput = errors.New("invalid input")
	// ErrRejected wraps credential and token rejections by the provider.
	ErrRejected = errors.New("authentication rejected")
)

// Authenticator is the auth provider surface the service uses.
// *client.AuthClient satisfies it.
type Authenticator interface {
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*client.AuthResponse, error)
	SignIn(ctx context.Context, email, password string) (*client.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*client.AuthResponse, error)
	SignOut(ctx context.Context, accessToken string) error
	GetUser(ctx context.Context, accessToken string) (*client.User, error)
	UpdateUser(ctx context.Context, accessToken string, metadata map[string]any) (*client.User, error)
}

// User is the signed-in user as returned to the browser.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
	CreatedAt    string         `json:"created_at,omitempty"`
}

// Session is the provider session handed to the browser.
type Session struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	User         *User  `json:"user,omitempty"`
	// ConfirmationRequired is set after sign-up when the provider wants the
	// email confirmed before issuing tokens.
	ConfirmationRequired bool `json:"confirmation_required,omitempty"`
}

// Service implements sign-in, sign-up and profile updates.
type Service struct {
	auth     Authenticator
	profiles storage.ProfileStore
	log      *logger.Logger
	now      func() time.Time
}

// New creates a session service.
func New(auth Authenticator, profiles storage.ProfileStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("session")
	}
	return &Service{auth: auth, profiles: profiles, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// AvatarURL is the generated avatar for a new account.
func AvatarURL(username string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(username) + "&background=random"
}

func validateCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	if !strings.Contains(email, "@") {
		return fmt.Errorf("%w: email address is not valid", ErrInvalidInput)
	}
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLength)
	}
	return nil
}

// SignIn exchanges email and password for a session.
func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	if err := validateCredentials(email, password); err != nil {
		return Session{}, err
	}
	resp, err := s.auth.SignIn(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return Session{}, providerError("sign in", err)
	}
	return toSession(resp), nil
}

// SignUp registers a user and creates the matching profile row. A failed
// profile insert fails the sign-up.
func (s *Service) SignUp(ctx context.Context, email, password, username string) (Session, error) {
	if err := validateCredentials(email, password); err != nil {
		return Session{}, err
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return Session{}, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}

	resp, err := s.auth.SignUp(ctx, strings.TrimSpace(email), password, map[string]any{"username": username})
	if err != nil {
		return Session{}, providerError("sign up", err)
	}

	if resp.User != nil && resp.User.ID != "" {
		_, err := s.profiles.CreateProfile(ctx, profile.Profile{
			ID:        resp.User.ID,
			Username:  username,
			AvatarURL: AvatarURL(username),
			CreatedAt: s.now(),
		})
		if err != nil {
			return Session{}, fmt.Errorf("create profile: %w", err)
		}
	}

	sess := toSession(resp)
	sess.ConfirmationRequired = sess.AccessToken == ""
	s.log.WithField("user_id", userID(resp)).Info("user signed up")
	return sess, nil
}

// SignOut revokes the session. Provider failures are logged only; the
// browser drops its tokens either way.
func (s *Service) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	if err := s.auth.SignOut(ctx, accessToken); err != nil {
		s.log.WithError(err).Warn("provider sign out failed")
	}
	return nil
}

// Refresh exchanges a refresh token for a new session.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return Session{}, fmt.Errorf("%w: refresh token is required", ErrInvalidInput)
	}
	resp, err := s.auth.Refresh(ctx, refreshToken)
	if err != nil {
		return Session{}, providerError("refresh", err)
	}
	return toSession(resp), nil
}

// CurrentUser resolves the user owning accessToken.
func (s *Service) CurrentUser(ctx context.Context, accessToken string) (User, error) {
	u, err := s.auth.GetUser(ctx, accessToken)
	if err != nil {
		return User{}, providerError("get user", err)
	}
	return toUser(u), nil
}

// Profile loads the user's profile row.
func (s *Service) Profile(ctx context.Context, userID string) (profile.Profile, error) {
	return s.profiles.GetProfile(ctx, userID)
}

// UpdateProfile writes update to the profile row, re-reads it and merges the
// same fields into the provider's user metadata.
func (s *Service) UpdateProfile(ctx context.Context, userID, accessToken string, update profile.Update) (profile.Profile, error) {
	if update.Empty() {
		return profile.Profile{}, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	if update.Username != nil {
		trimmed := strings.TrimSpace(*update.Username)
		if trimmed == "" {
			return profile.Profile{}, fmt.Errorf("%w: username cannot be empty", ErrInvalidInput)
		}
		update.Username = &trimmed
	}

	p, err := s.profiles.UpdateProfile(ctx, userID, update)
	if err != nil {
		return profile.Profile{}, err
	}

	if accessToken != "" {
		if _, err := s.auth.UpdateUser(ctx, accessToken, update.Metadata()); err != nil {
			s.log.WithError(err).WithField("user_id", userID).Warn("user metadata update failed")
		}
	}
	return p, nil
}

func providerError(op string, err error) error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
		return fmt.Errorf("%w: %s", ErrRejected, apiErr.Message)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func toSession(resp *client.AuthResponse) Session {
	sess := Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
		TokenType:    resp.TokenType,
	}
	if resp.User != nil {
		u := toUser(resp.User)
		sess.User = &u
	}
	return sess
}

func toUser(u *client.User) User {
	meta := u.UserMetadata
	if meta == nil {
		meta = map[string]any{}
	}
	return User{ID: u.ID, Email: u.Email, UserMetadata: meta, CreatedAt: u.CreatedAt}
}

func userID(resp *client.AuthResponse) string {
	if resp.User == nil {
		return ""
	}
	return resp.User.ID
}
