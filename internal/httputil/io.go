// Package httputil holds small HTTP helpers shared by the API handlers and the
// upstream clients.
package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrBodyTooLarge is returned by ReadAllStrict when the body exceeds the limit.
var ErrBodyTooLarge = errors.New("response body too large")

// ReadAllWithLimit reads at most limit bytes and reports whether the body was
// truncated.
func ReadAllWithLimit(r io.Reader, limit int64) ([]byte, bool, error) {
	if limit <= 0 {
		return nil, false, fmt.Errorf("limit must be positive")
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(data)) > limit {
		return data[:limit], true, nil
	}
	return data, false, nil
}

// ReadAllStrict reads the whole body and fails when it exceeds limit.
func ReadAllStrict(r io.Reader, limit int64) ([]byte, error) {
	data, truncated, err := ReadAllWithLimit(r, limit)
	if err != nil {
		return nil, err
	}
	if truncated {
		return nil, ErrBodyTooLarge
	}
	return data, nil
}

// DecodeResponse decodes a JSON response into target and closes the body.
// Error statuses are returned as errors carrying the (truncated) body.
func DecodeResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, truncated, err := ReadAllWithLimit(resp.Body, 64<<10)
		if err != nil {
			return fmt.Errorf("read error response body: %w", err)
		}
		msg := strings.TrimSpace(string(body))
		if truncated {
			msg += "...(truncated)"
		}
		return &StatusError{StatusCode: resp.StatusCode, Body: msg}
	}

	if target == nil {
		_, err := io.Copy(io.Discard, io.LimitReader(resp.Body, 8<<20))
		return err
	}

	body, err := ReadAllStrict(resp.Body, 8<<20)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// StatusError is an upstream non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Body)
}
