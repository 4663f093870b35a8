// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apperr defines the error taxonomy shared by the content store client,
the admin workflows and the HTTP layer.

Architecture:

  - AppError: A struct containing a machine-readable Code and a client-safe message.
  - Taxonomy: Store failures are classified as TRANSPORT_ERROR, UNAUTHORIZED,
    NOT_FOUND, CONFLICT, RETRIES_EXHAUSTED, VALIDATION_ERROR or PARTIAL_FAILURE.
  - Mapping: Every code carries the HTTP status used by [respond.Error].

Callers classify failures with [HasCode] instead of matching on messages.
*/
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// # Codes

const (
	CodeNotFound           = "NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeConflict           = "CONFLICT"
	CodeValidation         = "VALIDATION_ERROR"
	CodeRateLimited        = "RATE_LIMITED"
	CodeUnprocessable      = "UNPROCESSABLE"
	CodeUnsupported        = "UNSUPPORTED_ARCHIVE"
	CodeTransport          = "TRANSPORT_ERROR"
	CodeRetriesExhausted   = "RETRIES_EXHAUSTED"
	CodePartialFailure     = "PARTIAL_FAILURE"
	CodeInternal           = "INTERNAL_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// AppError is the canonical error type for the mangashelf API.
//
// It carries an HTTP status code, a machine-readable code, a client-safe
// message, and an optional slice of field-level validation errors.
//
// # Security
//
// The Cause field is for server-side logging only and is never sent to clients
// to avoid leaking internal implementation details (e.g., SQL queries).
type AppError struct {
	// Code is a machine-readable error identifier (e.g. "NOT_FOUND", "CONFLICT").
	Code string `json:"code"`
	// Message is a human-readable description safe to return to the client.
	Message string `json:"error"`
	// HTTPStatus is the HTTP response status code.
	HTTPStatus int `json:"-"`
	// Cause is the underlying error, used for server-side logging only.
	Cause error `json:"-"`
	// Details holds per-field validation errors for VALIDATION_ERROR responses.
	Details []FieldError `json:"details,omitempty"`
	// Counts is set on PARTIAL_FAILURE errors.
	Counts *Counts `json:"counts,omitempty"`
}

// Counts reports how many items of a batch succeeded and failed.
type Counts struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	// Field is the JSON field name that failed validation.
	Field string `json:"field"`
	// Message is the human-readable description of the failure.
	Message string `json:"message"`
}

// Error implements the error interface. It returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// # Client Errors (4xx)

// NotFound creates a 404 [AppError] for a named resource.
//
// Example:
//
//	apperr.NotFound("Series") // Returns "Series not found"
func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    resource + " not found",
		HTTPStatus: http.StatusNotFound,
	}
}

// Unauthorized creates a 401 [AppError].
func Unauthorized(msg string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    msg,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Forbidden creates a 403 [AppError].
func Forbidden(msg string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    msg,
		HTTPStatus: http.StatusForbidden,
	}
}

// Conflict creates a 409 [AppError] for optimistic-concurrency failures such as
// a non fast-forward ref update or a stale file sha.
func Conflict(msg string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    msg,
		HTTPStatus: http.StatusConflict,
	}
}

// ValidationError creates a 400 [AppError] with optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// RateLimited creates a 429 [AppError].
func RateLimited(retryAfterSeconds int) *AppError {
	return &AppError{
		Code:       CodeRateLimited,
		Message:    fmt.Sprintf("Too many requests. Try again in %ds.", retryAfterSeconds),
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// Unprocessable creates a 422 [AppError] for semantically invalid input.
func Unprocessable(msg string) *AppError {
	return &AppError{
		Code:       CodeUnprocessable,
		Message:    msg,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// Unsupported creates a 422 [AppError] for archive descriptors in the legacy
// bare-URL form, which cannot be enumerated.
func Unsupported(msg string) *AppError {
	return &AppError{
		Code:       CodeUnsupported,
		Message:    msg,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// PartialFailure creates a 207 [AppError] for batch operations where some items failed.
func PartialFailure(msg string, succeeded, failed int, cause error) *AppError {
	return &AppError{
		Code:       CodePartialFailure,
		Message:    msg,
		HTTPStatus: http.StatusMultiStatus,
		Cause:      cause,
		Counts:     &Counts{Succeeded: succeeded, Failed: failed},
	}
}

// # Server Errors (5xx)

// Transport creates a 502 [AppError] for network failures, unexpected upstream
// statuses and undecodable upstream bodies.
func Transport(msg string, cause error) *AppError {
	return &AppError{
		Code:       CodeTransport,
		Message:    msg,
		HTTPStatus: http.StatusBadGateway,
		Cause:      cause,
	}
}

// RetriesExhausted creates a 503 [AppError] wrapping the last attempt's failure.
func RetriesExhausted(attempts int, cause error) *AppError {
	return &AppError{
		Code:       CodeRetriesExhausted,
		Message:    fmt.Sprintf("Operation failed after %d attempts", attempts),
		HTTPStatus: http.StatusServiceUnavailable,
		Cause:      cause,
	}
}

// Internal creates a 500 [AppError] wrapping an unexpected server-side error.
// The cause is stored for logging but is never sent to the client.
func Internal(cause error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "An unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// ServiceUnavailable creates a 503 [AppError] for degraded dependencies.
func ServiceUnavailable(msg string) *AppError {
	return &AppError{
		Code:       CodeServiceUnavailable,
		Message:    msg,
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// # Helpers

// IsAppError reports whether err (or any error in its chain) is an [*AppError].
func IsAppError(err error) bool {
	var ae *AppError
	return errors.As(err, &ae)
}

// HasCode reports whether err's chain contains an [*AppError] with the given code.
func HasCode(err error, code string) bool {
	for err != nil {
		ae := As(err)
		if ae == nil {
			return false
		}
		if ae.Code == code {
			return true
		}
		err = ae.Cause
	}
	return false
}

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}
