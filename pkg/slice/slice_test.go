// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package slice_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/mangashelf/pkg/slice"
)

/*
TestSlice verifies Map, Filter and Reduce, including nil inputs.
*/
func TestSlice(t *testing.T) {
	names := []string{"01.webp", "notes.txt", "02.webp"}

	pages := slice.Filter(names, func(name string) bool { return strings.HasSuffix(name, ".webp") })
	assert.Equal(t, []string{"01.webp", "02.webp"}, pages)

	lengths := slice.Map(pages, func(name string) int { return len(name) })
	assert.Equal(t, []int{7, 7}, lengths)

	total := slice.Reduce(lengths, 0, func(sum, n int) int { return sum + n })
	assert.Equal(t, 14, total)

	assert.Nil(t, slice.Map[string, int](nil, func(string) int { return 0 }))
	assert.Nil(t, slice.Filter[string](nil, func(string) bool { return true }))
	assert.Equal(t, 5, slice.Reduce[int](nil, 5, func(sum, n int) int { return sum + n }))
}
