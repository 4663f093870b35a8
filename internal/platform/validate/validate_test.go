// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mangashelf/internal/platform/apperr"
	"github.com/taibuivan/mangashelf/internal/platform/validate"
)

/*
TestValidator_Required tests the mandatory field validation logic.
*/
func TestValidator_Required(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		value    string
		hasError bool
	}{
		{"valid_string", "series", "one-piece", false},
		{"empty_string", "series", "", true},
		{"whitespace_only", "series", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Required(tt.field, tt.value)

			if tt.hasError {
				assert.True(t, v.HasErrors())
				err := v.Err()
				require.NotNil(t, err)

				ae := apperr.As(err)
				require.NotNil(t, ae)
				assert.Equal(t, apperr.CodeValidation, ae.Code)
				assert.Equal(t, tt.field, ae.Details[0].Field)
			} else {
				assert.False(t, v.HasErrors())
				assert.Nil(t, v.Err())
			}
		})
	}
}

/*
TestValidator_PathSegment checks that store path segments cannot escape their directory.
*/
func TestValidator_PathSegment(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		isValid bool
	}{
		{"slug", "solo-leveling", true},
		{"decimal_chapter", "10.5", true},
		{"spaces", "Vol 2", true},
		{"nested_path", "a/b", false},
		{"parent_dir", "..", false},
		{"embedded_parent", "a..b", false},
		{"leading_dot", ".hidden", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.PathSegment("chapter", tt.value)
			assert.Equal(t, !tt.isValid, v.HasErrors())
		})
	}
}

/*
TestValidator_NotEmpty checks the slice rule.
*/
func TestValidator_NotEmpty(t *testing.T) {
	v := &validate.Validator{}
	validate.NotEmpty(v, "files", []string{})
	assert.True(t, v.HasErrors())

	v = &validate.Validator{}
	validate.NotEmpty(v, "files", []string{"01.png"})
	assert.False(t, v.HasErrors())
}

/*
TestValidator_Chain tests the fluent API (chaining multiple rules).
*/
func TestValidator_Chain(t *testing.T) {
	v := &validate.Validator{}

	err := v.
		Required("series", "berserk").
		PathSegment("series", "berserk").
		OneOf("kind", "page", "page", "cover").
		Err()

	assert.NoError(t, err)
	assert.False(t, v.HasErrors())
}

/*
TestValidator_Chain_Failure tests error accumulation in the chain.
*/
func TestValidator_Chain_Failure(t *testing.T) {
	v := &validate.Validator{}

	// All three rules fail
	err := v.
		Required("series", "").
		PathSegment("chapter", "../etc").
		OneOf("kind", "banner", "page", "cover").
		Err()

	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)

	assert.Len(t, ae.Details, 3)
}
