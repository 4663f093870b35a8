// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package viewstate

// Entry is one history record.
type Entry struct {
	State    State
	Position Position
	Query    string
}

// History records navigations.
type History interface {
	Push(entry Entry)
}

// Navigator is a history that can move back and forward.
type Navigator interface {
	History
	Back() (Entry, bool)
	Forward() (Entry, bool)
}

// MemoryHistory is an in-process browser-style history stack.
type MemoryHistory struct {
	entries []Entry
	index   int
}

// NewMemoryHistory starts a history at the given query.
func NewMemoryHistory(query string) *MemoryHistory {
	position, _ := Parse(query)
	return &MemoryHistory{entries: []Entry{{State: position.State(), Position: position, Query: position.Encode()}}}
}

// Push drops any forward entries and appends entry.
func (history *MemoryHistory) Push(entry Entry) {
	history.entries = append(history.entries[:history.index+1], entry)
	history.index = len(history.entries) - 1
}

// Back moves to the previous entry.
func (history *MemoryHistory) Back() (Entry, bool) {
	if history.index == 0 {
		return Entry{}, false
	}
	history.index--
	return history.entries[history.index], true
}

// Forward moves to the next entry.
func (history *MemoryHistory) Forward() (Entry, bool) {
	if history.index >= len(history.entries)-1 {
		return Entry{}, false
	}
	history.index++
	return history.entries[history.index], true
}

// Current returns the active entry.
func (history *MemoryHistory) Current() Entry {
	return history.entries[history.index]
}

// Len returns the number of entries.
func (history *MemoryHistory) Len() int {
	return len(history.entries)
}
