// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package convert provides fault-tolerant conversions for query parameters.

Do not use this package if distinguishing between malformed data and zero values
is important; parse explicitly instead.
*/
package convert

import "strconv"

// ToIntD parses str as an integer, returning def when it is empty or malformed.
func ToIntD(str string, def int) int {
	if str == "" {
		return def
	}

	if v, err := strconv.Atoi(str); err == nil {
		return v
	}
	return def
}
