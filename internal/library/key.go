// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package library

import "strings"

var keyReplacer = strings.NewReplacer(".", "_", "#", "_", "$", "_", "[", "_", "]", "_")

// SanitizeKey replaces the characters that are not allowed in presence and
// view-count keys.
func SanitizeKey(value string) string {
	return keyReplacer.Replace(value)
}

// RoomKey identifies the readers of one chapter.
func RoomKey(seriesID, chapter string) string {
	return SanitizeKey(seriesID) + "_" + SanitizeKey(chapter)
}
