package client

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/R3E-Network/video_portal/internal/logging"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	// Jitter adds randomness to backoff (0.0 to 1.0)
	Jitter               float64
	RetryableStatusCodes []int
}

// DefaultRetryConfig returns the retry policy used against Supabase.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            0.1,
		RetryableStatusCodes: []int{
			http.StatusTooManyRequests,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
	}
}

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures circuit breaker behavior.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold int
	// SuccessThreshold is the number of half-open successes that closes it again.
	SuccessThreshold int
	// Timeout is how long the circuit stays open before probing.
	Timeout       time.Duration
	OnStateChange func(from, to CircuitState)
}

// DefaultCircuitBreakerConfig returns sensible defaults.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
	}
}

// ErrCircuitOpen is returned when the circuit is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker guards an upstream that is failing.
type CircuitBreaker struct {
	mu sync.Mutex

	config    CircuitBreakerConfig
	state     CircuitState
	failures  int
	successes int
	lastError error
	openedAt  time.Time
	now       func() time.Time
}

// NewCircuitBreaker creates a closed circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 1
	}
	return &CircuitBreaker{config: config, state: CircuitClosed, now: time.Now}
}

// Allow checks if a request should be allowed.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitOpen {
		if cb.now().Sub(cb.openedAt) < cb.config.Timeout {
			return ErrCircuitOpen
		}
		cb.transitionTo(CircuitHalfOpen)
	}
	return nil
}

// RecordSuccess records a successful request.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		cb.failures = 0
	case CircuitHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.transitionTo(CircuitClosed)
		}
	}
}

// RecordFailure records a failed request.
func (cb *CircuitBreaker) RecordFailure(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastError = err
	switch cb.state {
	case CircuitClosed:
		cb.failures++
		if cb.failures >= cb.config.FailureThreshold {
			cb.transitionTo(CircuitOpen)
		}
	case CircuitHalfOpen:
		cb.transitionTo(CircuitOpen)
	}
}

func (cb *CircuitBreaker) transitionTo(next CircuitState) {
	prev := cb.state
	cb.state = next
	cb.failures = 0
	cb.successes = 0
	if next == CircuitOpen {
		cb.openedAt = cb.now()
	}
	if cb.config.OnStateChange != nil && prev != next {
		go cb.config.OnStateChange(prev, next)
	}
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// LastError returns the last recorded error.
func (cb *CircuitBreaker) LastError() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.lastError
}

// HTTPError is a retryable status that survived every attempt.
type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("upstream returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// resilientTransport retries failures that are safe to replay and trips a
// circuit breaker when Supabase keeps failing. Idempotent requests retry on
// timeouts and any configured status. POST and PATCH retry only on 429 and
// 503, where the upstream rejected the request before processing it. Request bodies are replayed through
// GetBody, which http.NewRequest sets for bytes.Reader bodies.
type resilientTransport struct {
	base    http.RoundTripper
	retry   RetryConfig
	breaker *CircuitBreaker
	sleep   func(ctx context.Context, d time.Duration) error

	total   int64
	retried int64
	failed  int64
}

func newResilientTransport(base http.RoundTripper, retry RetryConfig, breaker CircuitBreakerConfig) *resilientTransport {
	if base == nil {
		base = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		}
	}
	return &resilientTransport{
		base:    base,
		retry:   retry,
		breaker: NewCircuitBreaker(breaker),
		sleep:   sleepContext,
	}
}

func (rt *resilientTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	atomic.AddInt64(&rt.total, 1)
	if err := rt.breaker.Allow(); err != nil {
		atomic.AddInt64(&rt.failed, 1)
		return nil, err
	}
	if traceID := logging.GetTraceID(req.Context()); traceID != "" && req.Header.Get("X-Request-ID") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("X-Request-ID", traceID)
	}

	var lastErr error
	for attempt := 0; attempt <= rt.retry.MaxRetries; attempt++ {
		attemptReq := req
		if attempt > 0 {
			atomic.AddInt64(&rt.retried, 1)
			if err := rt.sleep(req.Context(), rt.backoff(attempt)); err != nil {
				return nil, err
			}
			var err error
			if attemptReq, err = rewind(req); err != nil {
				break
			}
		}

		resp, err := rt.base.RoundTrip(attemptReq)
		if err != nil {
			lastErr = err
			if idempotent(req.Method) && isRetryableError(err) {
				continue
			}
			break
		}
		if rt.retryableStatus(req.Method, resp.StatusCode) && attempt < rt.retry.MaxRetries {
			lastErr = &HTTPError{StatusCode: resp.StatusCode}
			resp.Body.Close()
			continue
		}
		if resp.StatusCode >= 500 {
			rt.breaker.RecordFailure(&HTTPError{StatusCode: resp.StatusCode})
		} else {
			rt.breaker.RecordSuccess()
		}
		return resp, nil
	}

	rt.breaker.RecordFailure(lastErr)
	atomic.AddInt64(&rt.failed, 1)
	return nil, lastErr
}

func rewind(req *http.Request) (*http.Request, error) {
	out := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return out, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("request body cannot be replayed")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	out.Body = body
	return out, nil
}

func (rt *resilientTransport) backoff(attempt int) time.Duration {
	backoff := float64(rt.retry.InitialBackoff) * math.Pow(rt.retry.BackoffMultiplier, float64(attempt-1))
	if max := float64(rt.retry.MaxBackoff); max > 0 && backoff > max {
		backoff = max
	}
	if rt.retry.Jitter > 0 {
		backoff += backoff * rt.retry.Jitter * (rand.Float64()*2 - 1)
	}
	return time.Duration(backoff)
}

func (rt *resilientTransport) retryableStatus(method string, code int) bool {
	if !idempotent(method) && code != http.StatusTooManyRequests && code != http.StatusServiceUnavailable {
		return false
	}
	for _, retryable := range rt.retry.RetryableStatusCodes {
		if code == retryable {
			return true
		}
	}
	return false
}

func idempotent(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPatch:
		return false
	}
	return true
}

func isRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Stats reports transport counters.
func (rt *resilientTransport) Stats() map[string]int64 {
	return map[string]int64{
		"total_requests":   atomic.LoadInt64(&rt.total),
		"retried_requests": atomic.LoadInt64(&rt.retried),
		"failed_requests":  atomic.LoadInt64(&rt.failed),
	}
}

// EnhancedConfig extends Config with resilience options.
type EnhancedConfig struct {
	Config
	RetryConfig          RetryConfig
	CircuitBreakerConfig CircuitBreakerConfig
	EnableResilience     bool
}

// NewEnhanced creates a client whose transport retries transient failures and
// opens a circuit breaker on sustained ones.
func NewEnhanced(cfg EnhancedConfig) (*Client, error) {
	if !cfg.EnableResilience {
		return New(cfg.Config)
	}

	var base http.RoundTripper
	timeout := 30 * time.Second
	if cfg.HTTPClient != nil {
		base = cfg.HTTPClient.Transport
		if cfg.HTTPClient.Timeout > 0 {
			timeout = cfg.HTTPClient.Timeout
		}
	}
	cfg.Config.HTTPClient = &http.Client{
		Transport: newResilientTransport(base, cfg.RetryConfig, cfg.CircuitBreakerConfig),
		Timeout:   timeout,
	}
	return New(cfg.Config)
}
