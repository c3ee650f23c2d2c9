package httpapi

import (
	"errors"
	"net/http"

	"github.com/R3E-Network/video_portal/internal/app/domain/profile"
	"github.com/R3E-Network/video_portal/internal/app/storage"
	"github.com/R3E-Network/video_portal/internal/httputil"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username,omitempty"`
}

// authResult is the {success, error} envelope the auth screens expect.
type authResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Session any    `json:"session,omitempty"`
	Profile any    `json:"profile,omitempty"`
}

func (h *handler) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	status, _, message, _ := h.classify(r, err)
	httputil.WriteJSON(w, status, authResult{Success: false, Error: message})
}

func (h *handler) signIn(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if !decodeBody(w, r, &body) {
		return
	}
	sess, err := h.app.Session.SignIn(r.Context(), body.Email, body.Password)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, authResult{Success: true, Session: sess})
}

func (h *handler) signUp(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if !decodeBody(w, r, &body) {
		return
	}
	sess, err := h.app.Session.SignUp(r.Context(), body.Email, body.Password, body.Username)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, authResult{Success: true, Session: sess})
}

func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	sess, err := h.app.Session.Refresh(r.Context(), body.RefreshToken)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, authResult{Success: true, Session: sess})
}

func (h *handler) signOut(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Session.SignOut(r.Context(), accessToken(r)); err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, authResult{Success: true})
}

// me returns the provider user plus the profile row, which may not exist yet
// for accounts created outside the portal.
func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	user, err := h.app.Session.CurrentUser(r.Context(), accessToken(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var prof *profile.Profile
	p, err := h.app.Session.Profile(r.Context(), user.ID)
	switch {
	case err == nil:
		prof = &p
	case !errors.Is(err, storage.ErrNotFound):
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"user": user, "profile": prof})
}

func (h *handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var update profile.Update
	if !decodeBody(w, r, &update) {
		return
	}
	p, err := h.app.Session.UpdateProfile(r.Context(), userID(r), accessToken(r), update)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, authResult{Success: true, Profile: p})
}
