// Package middleware provides HTTP middleware for the portal API.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/R3E-Network/video_portal/internal/errors"
	internalhttputil "github.com/R3E-Network/video_portal/internal/httputil"
	"github.com/R3E-Network/video_portal/internal/logging"
	"github.com/R3E-Network/video_portal/supabase/client"
)

// Claims are the claims of a Supabase access token.
type Claims struct {
	Email        string         `json:"email,omitempty"`
	Role         string         `json:"role,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	jwt.RegisteredClaims
}

// UserVerifier resolves an access token through the auth provider.
// *client.AuthClient satisfies it.
type UserVerifier interface {
	GetUser(ctx context.Context, accessToken string) (*client.User, error)
}

// AuthMiddleware authenticates Supabase bearer tokens. Tokens are verified
// locally when the project JWT secret is known, otherwise by asking the
// provider.
type AuthMiddleware struct {
	secret    []byte
	verifier  UserVerifier
	logger    *logging.Logger
	skipPaths map[string]bool
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(jwtSecret string, verifier UserVerifier, logger *logging.Logger, skipPaths []string) *AuthMiddleware {
	skip := make(map[string]bool)
	for _, path := range skipPaths {
		skip[path] = true
	}

	var secret []byte
	if jwtSecret != "" {
		secret = []byte(jwtSecret)
	}

	return &AuthMiddleware{
		secret:    secret,
		verifier:  verifier,
		logger:    logger,
		skipPaths: skip,
	}
}

// Handler authenticates the caller when a bearer token is present. Requests
// without a usable token continue anonymously; RequireUserID guards the
// routes that need a user.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" && isWebSocketUpgrade(r) {
			// Browsers cannot set headers on websocket handshakes.
			if token := r.URL.Query().Get("access_token"); token != "" {
				authHeader = "Bearer " + token
			}
		}
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		tokenString, err := bearerToken(authHeader)
		if err != nil {
			m.respondError(w, r, err)
			return
		}

		userID, err := m.authenticate(r.Context(), tokenString)
		if err != nil {
			m.logger.LogSecurityEvent(r.Context(), "token_rejected", map[string]interface{}{
				"path":  r.URL.Path,
				"error": err.Error(),
			})
			next.ServeHTTP(w, r)
			return
		}

		ctx := logging.WithUserID(r.Context(), userID)
		ctx = logging.WithAccessToken(ctx, tokenString)

		m.logger.WithContext(ctx).Debug("Authentication successful")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

func bearerToken(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", errors.Unauthorized("Invalid Authorization header format")
	}
	return strings.TrimSpace(parts[1]), nil
}

func (m *AuthMiddleware) authenticate(ctx context.Context, tokenString string) (string, error) {
	if m.secret != nil {
		claims, err := m.validateToken(tokenString)
		if err != nil {
			return "", err
		}
		return claims.Subject, nil
	}
	if m.verifier == nil {
		return "", errors.InvalidToken(nil).WithDetails("reason", "no token verifier configured")
	}
	user, err := m.verifier.GetUser(ctx, tokenString)
	if err != nil {
		return "", errors.InvalidToken(err)
	}
	if user.ID == "" {
		return "", errors.InvalidToken(nil).WithDetails("reason", "missing user id")
	}
	return user.ID, nil
}

// validateToken validates an HS256 token signed with the project secret.
func (m *AuthMiddleware) validateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, errors.InvalidToken(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.InvalidToken(nil).WithDetails("reason", "invalid claims type")
	}
	// The anon and service keys are valid JWTs too, but carry no user.
	if claims.Subject == "" {
		return nil, errors.InvalidToken(nil).WithDetails("reason", "missing subject")
	}
	return claims, nil
}

// respondError sends an error response
func (m *AuthMiddleware) respondError(w http.ResponseWriter, r *http.Request, err error) {
	serviceErr := errors.GetServiceError(err)
	if serviceErr == nil {
		serviceErr = errors.Internal("Authentication failed", err)
	}

	internalhttputil.WriteErrorResponse(w, r, serviceErr.HTTPStatus, string(serviceErr.Code), serviceErr.Message, serviceErr.Details)

	m.logger.WithContext(r.Context()).WithError(err).WithFields(map[string]interface{}{
		"path":   r.URL.Path,
		"method": r.Method,
		"status": serviceErr.HTTPStatus,
	}).Warn("Authentication failed")
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) string {
	return logging.GetUserID(ctx)
}

// RequireUserID rejects requests that carry no authenticated user.
func RequireUserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserID(r.Context()) == "" {
			se := errors.Unauthorized("User not logged in")
			internalhttputil.WriteErrorResponse(w, r, se.HTTPStatus, string(se.Code), se.Message, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
