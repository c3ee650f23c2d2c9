// Package httpapi exposes the portal services as a JSON API under /api/v1.
package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	app "github.com/R3E-Network/video_portal/internal/app"
	"github.com/R3E-Network/video_portal/internal/app/metrics"
	"github.com/R3E-Network/video_portal/internal/app/services/catalog"
	"github.com/R3E-Network/video_portal/internal/app/services/engagement"
	"github.com/R3E-Network/video_portal/internal/app/services/entitlement"
	"github.com/R3E-Network/video_portal/internal/app/services/session"
	"github.com/R3E-Network/video_portal/internal/app/services/upload"
	"github.com/R3E-Network/video_portal/internal/app/storage"
	svcerrors "github.com/R3E-Network/video_portal/internal/errors"
	"github.com/R3E-Network/video_portal/internal/httputil"
	"github.com/R3E-Network/video_portal/internal/logging"
	"github.com/R3E-Network/video_portal/internal/middleware"
)

// Options configures the HTTP surface.
type Options struct {
	Auth        *middleware.AuthMiddleware
	RateLimiter *middleware.RateLimiter
	Origins     []string
	Logger      *logging.Logger
	Version     string
}

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app      *app.Application
	log      *logging.Logger
	upgrader websocket.Upgrader
	version  string
	started  time.Time
}

// NewHandler returns the router with every middleware applied.
func NewHandler(application *app.Application, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logging.New("httpapi", "info", "text")
	}
	h := &handler{
		app:     application,
		log:     log,
		version: opts.Version,
		started: time.Now(),
	}
	allowed := middleware.NewCORSMiddleware(opts.Origins)
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return allowed.Allows(r.Header.Get("Origin")) },
	}

	router := mux.NewRouter()
	router.Use(middleware.NewTracingMiddleware(log).Handler)
	router.Use(middleware.Recovery(log))
	router.Use(metrics.InstrumentHandler)
	if opts.Auth != nil {
		router.Use(opts.Auth.Handler)
	}
	if opts.RateLimiter != nil {
		router.Use(opts.RateLimiter.Handler)
	}

	router.HandleFunc("/health", h.health).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	required := func(fn http.HandlerFunc) http.Handler { return middleware.RequireUserID(fn) }

	api.HandleFunc("/videos", h.listVideos).Methods(http.MethodGet)
	api.HandleFunc("/videos/trending", h.trending).Methods(http.MethodGet)
	api.HandleFunc("/videos/{id}", h.video).Methods(http.MethodGet)
	api.Handle("/videos/{id}/like", required(h.like)).Methods(http.MethodPost)
	api.Handle("/videos/{id}/like", required(h.unlike)).Methods(http.MethodDelete)
	api.HandleFunc("/search", h.search).Methods(http.MethodGet)
	api.HandleFunc("/shorts", h.shorts).Methods(http.MethodGet)
	api.HandleFunc("/channels/{id}", h.channel).Methods(http.MethodGet)
	api.HandleFunc("/channels/{id}/videos", h.channelVideos).Methods(http.MethodGet)

	api.HandleFunc("/auth/signin", h.signIn).Methods(http.MethodPost)
	api.HandleFunc("/auth/signup", h.signUp).Methods(http.MethodPost)
	api.HandleFunc("/auth/refresh", h.refresh).Methods(http.MethodPost)
	api.Handle("/auth/signout", required(h.signOut)).Methods(http.MethodPost)
	api.Handle("/auth/me", required(h.me)).Methods(http.MethodGet)
	api.Handle("/auth/profile", required(h.updateProfile)).Methods(http.MethodPatch)

	api.HandleFunc("/plans", h.plans).Methods(http.MethodGet)
	api.Handle("/subscription", required(h.subscription)).Methods(http.MethodGet)
	api.Handle("/subscription", required(h.subscribe)).Methods(http.MethodPost)
	api.Handle("/subscription", required(h.cancelSubscription)).Methods(http.MethodDelete)
	api.HandleFunc("/features/{feature}", h.feature).Methods(http.MethodGet)

	api.Handle("/history", required(h.history)).Methods(http.MethodGet)
	api.Handle("/history", required(h.clearHistory)).Methods(http.MethodDelete)
	api.Handle("/likes", required(h.likes)).Methods(http.MethodGet)
	api.Handle("/analytics", required(h.analytics)).Methods(http.MethodGet)

	api.Handle("/uploads", required(h.startUpload)).Methods(http.MethodPost)
	api.Handle("/uploads", required(h.listUploads)).Methods(http.MethodGet)
	api.Handle("/uploads/{id}", required(h.getUpload)).Methods(http.MethodGet)
	api.Handle("/uploads/{id}", required(h.cancelUpload)).Methods(http.MethodDelete)
	api.Handle("/uploads/{id}/ws", required(h.watchUpload)).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorResponse(w, r, http.StatusNotFound, string(svcerrors.CodeNotFound), "route not found", nil)
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorResponse(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	return allowed.Handler(router)
}

// classify maps an error onto status, code, message and details.
func (h *handler) classify(r *http.Request, err error) (int, svcerrors.Code, string, map[string]interface{}) {
	var apiErr *catalog.APIError
	if se := svcerrors.GetServiceError(err); se != nil {
		if se.HTTPStatus >= http.StatusInternalServerError {
			h.log.WithContext(r.Context()).WithError(err).Error("request failed")
		}
		return se.HTTPStatus, se.Code, se.Message, se.Details
	}
	switch {
	case errors.Is(err, session.ErrInvalidInput):
		return http.StatusBadRequest, svcerrors.CodeBadRequest, reason(err, session.ErrInvalidInput), nil
	case errors.Is(err, upload.ErrInvalidInput):
		return http.StatusBadRequest, svcerrors.CodeBadRequest, reason(err, upload.ErrInvalidInput), nil
	case errors.Is(err, entitlement.ErrInvalidPlan):
		return http.StatusBadRequest, svcerrors.CodeBadRequest, err.Error(), nil
	case errors.Is(err, session.ErrRejected):
		return http.StatusUnauthorized, svcerrors.CodeUnauthorized, reason(err, session.ErrRejected), nil
	case errors.Is(err, engagement.ErrNotSignedIn):
		return http.StatusUnauthorized, svcerrors.CodeUnauthorized, err.Error(), nil
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, upload.ErrNotFound):
		return http.StatusNotFound, svcerrors.CodeNotFound, err.Error(), nil
	case errors.Is(err, upload.ErrFinished):
		return http.StatusConflict, svcerrors.CodeConflict, err.Error(), nil
	case errors.As(err, &apiErr):
		h.log.WithContext(r.Context()).WithError(err).Warn("catalog request failed")
		return http.StatusBadGateway, svcerrors.CodeUpstream, apiErr.Message,
			map[string]interface{}{"reason": apiErr.Reason, "status": apiErr.StatusCode}
	}
	h.log.WithContext(r.Context()).WithError(err).Error("request failed")
	return http.StatusInternalServerError, svcerrors.CodeInternal, "internal error", nil
}

// reason strips the sentinel prefix from errors built as "%w: reason".
func reason(err, sentinel error) string {
	return strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
}

func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := h.classify(r, err)
	httputil.WriteErrorResponse(w, r, status, string(code), message, details)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := httputil.DecodeJSON(r.Body, dst); err != nil {
		httputil.WriteServiceError(w, r, err)
		return false
	}
	return true
}

// intParam parses an optional integer query parameter.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, svcerrors.BadRequest(name + " must be a non-negative integer")
	}
	return n, nil
}

func userID(r *http.Request) string {
	return logging.GetUserID(r.Context())
}

func accessToken(r *http.Request) string {
	return logging.GetAccessToken(r.Context())
}
