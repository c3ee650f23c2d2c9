// Package errors defines the service error type returned to HTTP clients.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Code is a stable, machine-readable error identifier.
type Code string

const (
	CodeBadRequest   Code = "BAD_REQUEST"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeInvalidToken Code = "INVALID_TOKEN"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeRateLimited  Code = "RATE_LIMIT_EXCEEDED"
	CodeUpstream     Code = "UPSTREAM_ERROR"
	CodeInternal     Code = "INTERNAL_ERROR"
)

// ServiceError is an error with an HTTP mapping.
type ServiceError struct {
	Code       Code
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// WithDetails attaches a detail key. It returns the receiver for chaining.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func newError(code Code, status int, message string, err error) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

func BadRequest(message string) *ServiceError {
	return newError(CodeBadRequest, http.StatusBadRequest, message, nil)
}

func Unauthorized(message string) *ServiceError {
	if message == "" {
		message = "authentication required"
	}
	return newError(CodeUnauthorized, http.StatusUnauthorized, message, nil)
}

func InvalidToken(err error) *ServiceError {
	return newError(CodeInvalidToken, http.StatusUnauthorized, "invalid or expired token", err)
}

func Forbidden(message string) *ServiceError {
	return newError(CodeForbidden, http.StatusForbidden, message, nil)
}

func NotFound(resource, id string) *ServiceError {
	return newError(CodeNotFound, http.StatusNotFound, fmt.Sprintf("%s %s not found", resource, id), nil).
		WithDetails("resource", resource)
}

func Conflict(message string) *ServiceError {
	return newError(CodeConflict, http.StatusConflict, message, nil)
}

func RateLimitExceeded(limit int, window string) *ServiceError {
	return newError(CodeRateLimited, http.StatusTooManyRequests, "rate limit exceeded", nil).
		WithDetails("limit", limit).
		WithDetails("window", window)
}

func Upstream(service string, err error) *ServiceError {
	return newError(CodeUpstream, http.StatusBadGateway, service+" request failed", err)
}

func Internal(message string, err error) *ServiceError {
	return newError(CodeInternal, http.StatusInternalServerError, message, err)
}

// GetServiceError extracts a *ServiceError from err's chain.
func GetServiceError(err error) *ServiceError {
	var se *ServiceError
	if stderrors.As(err, &se) {
		return se
	}
	return nil
}
