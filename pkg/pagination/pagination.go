// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package pagination slices ordered lists into fixed-size pages and describes
// the result for list responses.
package pagination

// Params selects one 1-based page of Limit items.
type Params struct {
	Page  int
	Limit int
}

// Offset is the index of the first item on the page.
func (p Params) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// Bounds returns the [start, end) range of the page within total items.
// A page past the end yields an empty range at total.
func (p Params) Bounds(total int) (int, int) {
	start := min(p.Offset(), total)
	return start, min(start+max(p.Limit, 0), total)
}

// Meta is the paging block of a list response.
type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewMeta describes page of a list with total items, limit per page.
func NewMeta(page, limit, total int) Meta {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Meta{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}
