// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package viewstate

import (
	"net/url"
	"strings"
)

// Query keys of a navigation URL.
const (
	KeySeries  = "series"
	KeyChapter = "ch"
)

// Position is the series and chapter a view is showing. Either may be empty.
type Position struct {
	SeriesID  string `json:"series,omitempty"`
	ChapterID string `json:"ch,omitempty"`
}

// Encode renders the query string with only the present keys, series first.
func (position Position) Encode() string {
	var parts []string
	if position.SeriesID != "" {
		parts = append(parts, KeySeries+"="+url.QueryEscape(position.SeriesID))
	}
	if position.ChapterID != "" {
		parts = append(parts, KeyChapter+"="+url.QueryEscape(position.ChapterID))
	}
	if len(parts) == 0 {
		return ""
	}
	return "?" + strings.Join(parts, "&")
}

// State returns the view a URL with this position opens.
func (position Position) State() State {
	switch {
	case position.SeriesID != "" && position.ChapterID != "":
		return StateReader
	case position.SeriesID != "":
		return StateChapterList
	default:
		return StateHome
	}
}

// Trim drops the keys state does not use.
func (position Position) Trim(state State) Position {
	switch state {
	case StateHome:
		return Position{}
	case StateChapterList:
		return Position{SeriesID: position.SeriesID}
	default:
		return position
	}
}

// Parse reads a position from a query string, with or without a leading "?".
func Parse(query string) (Position, error) {
	values, err := url.ParseQuery(strings.TrimPrefix(query, "?"))
	if err != nil {
		return Position{}, err
	}
	return Position{
		SeriesID:  strings.TrimSpace(values.Get(KeySeries)),
		ChapterID: strings.TrimSpace(values.Get(KeyChapter)),
	}, nil
}
