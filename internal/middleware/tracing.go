package middleware

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/R3E-Network/video_portal/internal/errors"
	internalhttputil "github.com/R3E-Network/video_portal/internal/httputil"
	"github.com/R3E-Network/video_portal/internal/logging"
)

// TracingMiddleware adds trace ID to all requests
type TracingMiddleware struct {
	logger *logging.Logger
}

// NewTracingMiddleware creates a new tracing middleware
func NewTracingMiddleware(logger *logging.Logger) *TracingMiddleware {
	return &TracingMiddleware{
		logger: logger,
	}
}

// Handler returns the tracing middleware handler
func (m *TracingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get("X-Trace-ID")
		if traceID == "" {
			traceID = logging.NewTraceID()
		}

		ctx := logging.WithTraceID(r.Context(), traceID)
		w.Header().Set("X-Trace-ID", traceID)

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		start := time.Now()
		r = r.WithContext(ctx)
		next.ServeHTTP(rw, r)

		m.logger.LogRequest(ctx, r.Method, r.URL.Path, rw.statusCode, time.Since(start))
	})
}

// Recovery turns handler panics into 500 responses.
func Recovery(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.WithContext(r.Context()).WithFields(map[string]interface{}{
						"panic": fmt.Sprint(rec),
						"stack": string(debug.Stack()),
					}).Error("handler panic")
					se := errors.Internal("internal error", nil)
					internalhttputil.WriteErrorResponse(w, r, se.HTTPStatus, string(se.Code), se.Message, nil)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// Hijack lets websocket upgrades pass through the wrapper.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	rw.written = true
	return hj.Hijack()
}
