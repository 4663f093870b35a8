// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mangashelf/internal/platform/apperr"
)

/*
TestConstructors verifies every constructor carries its code and HTTP status.
*/
func TestConstructors(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name   string
		err    *apperr.AppError
		code   string
		status int
	}{
		{name: "NotFound", err: apperr.NotFound("Series"), code: apperr.CodeNotFound, status: http.StatusNotFound},
		{name: "Unauthorized", err: apperr.Unauthorized("no"), code: apperr.CodeUnauthorized, status: http.StatusUnauthorized},
		{name: "Forbidden", err: apperr.Forbidden("no"), code: apperr.CodeForbidden, status: http.StatusForbidden},
		{name: "Conflict", err: apperr.Conflict("stale"), code: apperr.CodeConflict, status: http.StatusConflict},
		{name: "Validation", err: apperr.ValidationError("bad"), code: apperr.CodeValidation, status: http.StatusBadRequest},
		{name: "RateLimited", err: apperr.RateLimited(3), code: apperr.CodeRateLimited, status: http.StatusTooManyRequests},
		{name: "Unsupported", err: apperr.Unsupported("legacy"), code: apperr.CodeUnsupported, status: http.StatusUnprocessableEntity},
		{name: "PartialFailure", err: apperr.PartialFailure("some", 2, 1, cause), code: apperr.CodePartialFailure, status: http.StatusMultiStatus},
		{name: "Transport", err: apperr.Transport("upstream", cause), code: apperr.CodeTransport, status: http.StatusBadGateway},
		{name: "RetriesExhausted", err: apperr.RetriesExhausted(5, cause), code: apperr.CodeRetriesExhausted, status: http.StatusServiceUnavailable},
		{name: "Internal", err: apperr.Internal(cause), code: apperr.CodeInternal, status: http.StatusInternalServerError},
		{name: "ServiceUnavailable", err: apperr.ServiceUnavailable("down"), code: apperr.CodeServiceUnavailable, status: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

/*
TestMessages verifies the client-safe messages of the formatted constructors.
*/
func TestMessages(t *testing.T) {
	assert.Equal(t, "Series not found", apperr.NotFound("Series").Error())
	assert.Equal(t, "Too many requests. Try again in 3s.", apperr.RateLimited(3).Error())
	assert.Equal(t, "Operation failed after 5 attempts", apperr.RetriesExhausted(5, nil).Error())
	assert.Equal(t, "An unexpected error occurred", apperr.Internal(errors.New("sql: secret")).Error())

	partial := apperr.PartialFailure("Deleted 2 of 3 files", 2, 1, nil)
	require.NotNil(t, partial.Counts)
	assert.Equal(t, apperr.Counts{Succeeded: 2, Failed: 1}, *partial.Counts)
}

/*
TestHasCode verifies codes are found through wrapping and nested causes.
*/
func TestHasCode(t *testing.T) {
	conflict := apperr.Conflict("stale ref")
	exhausted := apperr.RetriesExhausted(5, conflict)
	wrapped := fmt.Errorf("upload: %w", exhausted)

	tests := []struct {
		name string
		err  error
		code string
		want bool
	}{
		{name: "Direct", err: conflict, code: apperr.CodeConflict, want: true},
		{name: "Wrapped", err: wrapped, code: apperr.CodeRetriesExhausted, want: true},
		{name: "NestedCause", err: wrapped, code: apperr.CodeConflict, want: true},
		{name: "Absent", err: wrapped, code: apperr.CodeNotFound, want: false},
		{name: "PlainError", err: errors.New("plain"), code: apperr.CodeInternal, want: false},
		{name: "Nil", err: nil, code: apperr.CodeInternal, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperr.HasCode(tt.err, tt.code))
		})
	}
}

/*
TestAs verifies extraction from a wrapped chain.
*/
func TestAs(t *testing.T) {
	notFound := apperr.NotFound("Chapter")

	assert.Same(t, notFound, apperr.As(fmt.Errorf("resolve: %w", notFound)))
	assert.Nil(t, apperr.As(errors.New("plain")))
	assert.True(t, apperr.IsAppError(fmt.Errorf("x: %w", notFound)))
	assert.False(t, apperr.IsAppError(errors.New("plain")))

	cause := errors.New("dial tcp: refused")
	assert.ErrorIs(t, apperr.Transport("upstream", cause), cause)
}
