// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package natsort orders chapter labels and page file names the way a reader
// expects: digit runs compare by numeric value and letter case is ignored,
// so "2" sorts before "10" and "Extra" sits next to "extra".
package natsort

import (
	"slices"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// collators is a pool because a [collate.Collator] keeps scratch buffers
// and must not be shared between goroutines.
var collators = sync.Pool{
	New: func() any {
		return collate.New(language.Und, collate.Numeric, collate.Loose)
	},
}

// Compare returns -1, 0 or +1 comparing a and b in natural order.
func Compare(a, b string) int {
	collator := collators.Get().(*collate.Collator)
	defer collators.Put(collator)
	return collator.CompareString(a, b)
}

// Sort orders labels in place. Labels that compare equal keep their order.
func Sort(labels []string) {
	slices.SortStableFunc(labels, Compare)
}

// Sorted returns a naturally ordered copy of labels.
func Sorted(labels []string) []string {
	out := slices.Clone(labels)
	Sort(out)
	return out
}

// SortBy orders items in place by the natural order of key(item).
func SortBy[T any](items []T, key func(T) string) {
	slices.SortStableFunc(items, func(a, b T) int {
		return Compare(key(a), key(b))
	})
}
