// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package result_test

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mangashelf/pkg/result"
)

var errBoom = errors.New("boom")

/*
TestResult_Of verifies conversion from (value, error) pairs.
*/
func TestResult_Of(t *testing.T) {
	ok := result.Of(42, nil)
	assert.True(t, ok.IsOk())
	assert.Equal(t, 42, ok.UnwrapOr(0))

	failed := result.Of(42, errBoom)
	assert.False(t, failed.IsOk())
	assert.ErrorIs(t, failed.Err(), errBoom)
	assert.Equal(t, 7, failed.UnwrapOr(7))
}

/*
TestResult_FailNil ensures a failure never looks successful.
*/
func TestResult_FailNil(t *testing.T) {
	r := result.Fail[int](nil)
	assert.False(t, r.IsOk())
	assert.Error(t, r.Err())
}

/*
TestResult_Combinators verifies Map, AndThen and Match short-circuit on failure.
*/
func TestResult_Combinators(t *testing.T) {
	parsed := result.AndThen(result.Ok("12"), strconv.Atoi)
	doubled := result.Map(parsed, func(n int) int { return n * 2 })

	value, err := doubled.Get()
	require.NoError(t, err)
	assert.Equal(t, 24, value)

	calls := 0
	broken := result.Map(result.Fail[int](errBoom), func(n int) int {
		calls++
		return n
	})
	assert.Zero(t, calls)
	assert.ErrorIs(t, broken.Err(), errBoom)

	label := result.Match(broken,
		func(int) string { return "ok" },
		func(err error) string { return err.Error() },
	)
	assert.Equal(t, "boom", label)
}

/*
TestResult_Try verifies that panics become failures.
*/
func TestResult_Try(t *testing.T) {
	r := result.Try(func() (int, error) {
		panic("decoder exploded")
	})
	assert.False(t, r.IsOk())
	assert.Contains(t, r.Err().Error(), "decoder exploded")
}

/*
TestResult_Partition keeps successful values in order.
*/
func TestResult_Partition(t *testing.T) {
	values, failures := result.Partition([]result.Result[string]{
		result.Ok("01.webp"),
		result.Fail[string](errBoom),
		result.Ok("02.webp"),
	})

	assert.Equal(t, []string{"01.webp", "02.webp"}, values)
	assert.Len(t, failures, 1)
}
