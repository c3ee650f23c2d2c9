package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// CodeNoRows is the PostgREST code for a single-object request that matched
// no rows.
const CodeNoRows = "PGRST116"

// APIError is a failed PostgREST or GoTrue response.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase error (%d %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase error (%d): %s", e.StatusCode, e.Message)
}

// parseAPIError reads the error envelope. PostgREST uses code/message, GoTrue
// uses error/error_description or msg depending on the endpoint version.
func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	if gjson.ValidBytes(body) {
		doc := gjson.ParseBytes(body)
		apiErr.Code = firstString(doc, "code", "error_code", "error")
		apiErr.Message = firstString(doc, "message", "msg", "error_description", "error")
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

func firstString(doc gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := doc.Get(p); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

// IsNoRows reports whether err is a "no rows" PostgREST answer.
func IsNoRows(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == CodeNoRows || apiErr.StatusCode == http.StatusNotFound
}

// IsUnauthorized reports whether err is an auth rejection.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
}

// StatusCode returns the HTTP status of an *APIError, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
