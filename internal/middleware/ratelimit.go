package middleware

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/R3E-Network/video_portal/internal/errors"
	internalhttputil "github.com/R3E-Network/video_portal/internal/httputil"
	"github.com/R3E-Network/video_portal/internal/logging"
)

// limiterIdleTTL is how long an unused limiter is kept.
const limiterIdleTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits requests per user, or per client IP for anonymous
// callers. It runs as a lifecycle service so idle limiters get dropped.
type RateLimiter struct {
	limiters map[string]*visitor
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	logger   *logging.Logger
	interval time.Duration
	now      func() time.Time

	stop chan struct{}
	done chan struct{}
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(requestsPerSecond int, burst int, logger *logging.Logger) *RateLimiter {
	if burst < requestsPerSecond {
		burst = requestsPerSecond
	}
	return &RateLimiter{
		limiters: make(map[string]*visitor),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		logger:   logger,
		interval: time.Minute,
		now:      time.Now,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.limiters[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = v
	}
	v.lastSeen = rl.now()
	return v.limiter
}

// Handler returns the rate limiting middleware handler
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := GetUserID(r.Context())
		if key == "" {
			key = clientIP(r)
		}

		if !rl.getLimiter(key).Allow() {
			rl.logger.LogSecurityEvent(r.Context(), "rate_limit_exceeded", map[string]interface{}{
				"key":    key,
				"path":   r.URL.Path,
				"method": r.Method,
			})

			serviceErr := errors.RateLimitExceeded(int(rl.rate), "1s")
			w.Header().Set("Retry-After", "1")
			internalhttputil.WriteErrorResponse(w, r, serviceErr.HTTPStatus, string(serviceErr.Code), serviceErr.Message, serviceErr.Details)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Cleanup removes limiters idle for longer than limiterIdleTTL.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-limiterIdleTTL)
	for key, v := range rl.limiters {
		if v.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
		}
	}
}

func (rl *RateLimiter) Name() string { return "rate-limiter" }

// Start runs Cleanup periodically until Stop.
func (rl *RateLimiter) Start(ctx context.Context) error {
	rl.mu.Lock()
	if rl.stop != nil {
		rl.mu.Unlock()
		return nil
	}
	rl.stop = make(chan struct{})
	rl.done = make(chan struct{})
	stop, done := rl.stop, rl.done
	rl.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(rl.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				rl.Cleanup()
			}
		}
	}()
	return nil
}

func (rl *RateLimiter) Stop(ctx context.Context) error {
	rl.mu.Lock()
	stop, done := rl.stop, rl.done
	rl.stop, rl.done = nil, nil
	rl.mu.Unlock()
	if stop == nil {
		return nil
	}
	close(stop)
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
