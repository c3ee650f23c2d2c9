// Package logging carries request-scoped logging state (trace and user ids)
// through contexts and emits the per-request access log.
package logging

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/R3E-Network/video_portal/pkg/logger"
)

type contextKey string

const (
	TraceIDKey contextKey = "trace_id"
	UserIDKey  contextKey = "user_id"
	TokenKey   contextKey = "access_token"
)

// Logger is a request-aware logger.
type Logger struct {
	*logger.Logger
	service string
}

// New creates a logger for service with the given level and format.
func New(service, level, format string) *Logger {
	base := logger.New(logger.LoggingConfig{Level: level, Format: format})
	return &Logger{Logger: base.WithField("service", service), service: service}
}

// Wrap adapts an existing component logger.
func Wrap(l *logger.Logger, service string) *Logger {
	if l == nil {
		l = logger.NewDefault(service)
	}
	return &Logger{Logger: l, service: service}
}

// WithContext returns a logger carrying the trace and user ids found in ctx.
func (l *Logger) WithContext(ctx context.Context) *logger.Logger {
	out := l.Logger
	if traceID := GetTraceID(ctx); traceID != "" {
		out = out.WithField("trace_id", traceID)
	}
	if userID := GetUserID(ctx); userID != "" {
		out = out.WithField("user_id", userID)
	}
	return out
}

// LogRequest writes one access-log line.
func (l *Logger) LogRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	entry := l.WithContext(ctx).WithFields(map[string]interface{}{
		"method":      method,
		"path":        path,
		"status":      status,
		"duration_ms": duration.Milliseconds(),
	})
	switch {
	case status >= 500:
		entry.Error("request failed")
	case status >= 400:
		entry.Warn("request rejected")
	default:
		entry.Info("request handled")
	}
}

// LogSecurityEvent records auth and abuse related events.
func (l *Logger) LogSecurityEvent(ctx context.Context, event string, fields map[string]interface{}) {
	l.WithContext(ctx).WithField("security_event", event).WithFields(fields).Warn("security event")
}

// NewTraceID generates a new trace id.
func NewTraceID() string {
	return uuid.NewString()
}

// WithTraceID stores the trace id in ctx.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID returns the trace id stored in ctx, if any.
func GetTraceID(ctx context.Context) string {
	v, _ := ctx.Value(TraceIDKey).(string)
	return v
}

// WithUserID stores the authenticated user id in ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserID returns the authenticated user id stored in ctx, if any.
func GetUserID(ctx context.Context) string {
	v, _ := ctx.Value(UserIDKey).(string)
	return v
}

// WithAccessToken stores the caller's bearer token in ctx so downstream
// calls to the auth provider can act on the user's behalf.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, TokenKey, token)
}

// GetAccessToken returns the caller's bearer token, if any.
func GetAccessToken(ctx context.Context) string {
	v, _ := ctx.Value(TokenKey).(string)
	return v
}
