package session

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/video_portal/internal/app/domain/profile"
	"github.com/R3E-Network/video_portal/internal/app/storage/memory"
	"github.com/R3E-Network/video_portal/pkg/logger"
	"github.com/R3E-Network/video_portal/supabase/client"
)

type fakeAuth struct {
	signUpMeta  map[string]any
	signUpResp  *client.AuthResponse
	signInErr   error
	updatedMeta map[string]any
	updateErr   error
	signOutErr  error
}

func (f *fakeAuth) SignUp(_ context.Context, email, _ string, metadata map[string]any) (*client.AuthResponse, error) {
	f.signUpMeta = metadata
	if f.signUpResp != nil {
		return f.signUpResp, nil
	}
	return &client.AuthResponse{AccessToken: "at", RefreshToken: "rt", User: &client.User{ID: "u1", Email: email}}, nil
}

func (f *fakeAuth) SignIn(_ context.Context, email, _ string) (*client.AuthResponse, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return &client.AuthResponse{AccessToken: "at", TokenType: "bearer", ExpiresIn: 3600, User: &client.User{ID: "u1", Email: email}}, nil
}

func (f *fakeAuth) Refresh(context.Context, string) (*client.AuthResponse, error) {
	return &client.AuthResponse{AccessToken: "at2", RefreshToken: "rt2"}, nil
}

func (f *fakeAuth) SignOut(context.Context, string) error { return f.signOutErr }

func (f *fakeAuth) GetUser(_ context.Context, token string) (*client.User, error) {
	if token != "good" {
		return nil, &client.APIError{StatusCode: http.StatusUnauthorized, Message: "invalid JWT"}
	}
	return &client.User{ID: "u1", Email: "a@b.c"}, nil
}

func (f *fakeAuth) UpdateUser(_ context.Context, _ string, metadata map[string]any) (*client.User, error) {
	f.updatedMeta = metadata
	return &client.User{ID: "u1"}, f.updateErr
}

func newService(auth *fakeAuth) (*Service, *memory.Store) {
	store := memory.New()
	return New(auth, store, logger.NewDiscard()), store
}

func TestSignUpCreatesProfile(t *testing.T) {
	auth := &fakeAuth{}
	svc, store := newService(auth)

	sess, err := svc.SignUp(context.Background(), "a@b.c", "secret1", "  Alice Smith ")
	require.NoError(t, err)
	assert.Equal(t, "at", sess.AccessToken)
	assert.False(t, sess.ConfirmationRequired)
	assert.Equal(t, "Alice Smith", auth.signUpMeta["username"])

	p, err := store.GetProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", p.Username)
	assert.Equal(t, "https://ui-avatars.com/api/?name=Alice+Smith&background=random", p.AvatarURL)
	assert.False(t, p.CreatedAt.IsZero())
}

func TestSignUpWithoutSessionNeedsConfirmation(t *testing.T) {
	auth := &fakeAuth{signUpResp: &client.AuthResponse{User: &client.User{ID: "u2"}}}
	svc, _ := newService(auth)

	sess, err := svc.SignUp(context.Background(), "a@b.c", "secret1", "bob")
	require.NoError(t, err)
	assert.True(t, sess.ConfirmationRequired)
}

func TestSignUpFailsWhenProfileInsertFails(t *testing.T) {
	auth := &fakeAuth{}
	svc, store := newService(auth)
	_, err := store.CreateProfile(context.Background(), profile.Profile{ID: "u1", Username: "taken"})
	require.NoError(t, err)

	_, err = svc.SignUp(context.Background(), "a@b.c", "secret1", "alice")
	assert.ErrorContains(t, err, "create profile")
}

func TestValidation(t *testing.T) {
	svc, _ := newService(&fakeAuth{})
	ctx := context.Background()

	cases := []struct {
		name                      string
		email, password, username string
	}{
		{"missing email", "", "secret1", "u"},
		{"bad email", "nope", "secret1", "u"},
		{"short password", "a@b.c", "12345", "u"},
		{"missing username", "a@b.c", "secret1", " "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SignUp(ctx, tc.email, tc.password, tc.username)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	_, err := svc.Refresh(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSignInRejectionCarriesProviderMessage(t *testing.T) {
	svc, _ := newService(&fakeAuth{signInErr: &client.APIError{StatusCode: 400, Message: "Invalid login credentials"}})

	_, err := svc.SignIn(context.Background(), "a@b.c", "secret1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "Invalid login credentials")

	svc, _ = newService(&fakeAuth{signInErr: errors.New("dial tcp: refused")})
	_, err = svc.SignIn(context.Background(), "a@b.c", "secret1")
	assert.NotErrorIs(t, err, ErrRejected)
}

func TestSignOutSwallowsProviderErrors(t *testing.T) {
	svc, _ := newService(&fakeAuth{signOutErr: errors.New("boom")})
	assert.NoError(t, svc.SignOut(context.Background(), "tok"))
}

func TestCurrentUser(t *testing.T) {
	svc, _ := newService(&fakeAuth{})
	u, err := svc.CurrentUser(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.NotNil(t, u.UserMetadata)

	_, err = svc.CurrentUser(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrRejected)
}

func TestUpdateProfileMergesMetadata(t *testing.T) {
	auth := &fakeAuth{updateErr: errors.New("metadata down")}
	svc, store := newService(auth)
	_, err := store.CreateProfile(context.Background(), profile.Profile{ID: "u1", Username: "old"})
	require.NoError(t, err)

	name := " new "
	p, err := svc.UpdateProfile(context.Background(), "u1", "tok", profile.Update{Username: &name})
	require.NoError(t, err)
	assert.Equal(t, "new", p.Username)
	assert.Equal(t, map[string]any{"username": "new"}, auth.updatedMeta)

	_, err = svc.UpdateProfile(context.Background(), "u1", "tok", profile.Update{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
