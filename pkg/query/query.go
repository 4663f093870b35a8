// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package query parses list-valued arguments.
package query

import "strings"

// StringSlice splits a comma-separated value, trimming entries and dropping
// empty ones. An empty value yields nil.
//
// Example:
//
//	query.StringSlice("01.webp, 02.webp,,") // []string{"01.webp", "02.webp"}
func StringSlice(val string) []string {
	if val == "" {
		return nil
	}

	var res []string
	for _, v := range strings.Split(val, ",") {
		if clean := strings.TrimSpace(v); clean != "" {
			res = append(res, clean)
		}
	}
	return res
}
