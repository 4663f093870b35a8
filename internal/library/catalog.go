// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package library

import (
	"context"
	"sync"

	"github.com/taibuivan/mangashelf/internal/platform/apperr"
	"github.com/taibuivan/mangashelf/internal/platform/constants"
	"github.com/taibuivan/mangashelf/pkg/pagination"
)

// # Catalog

// Catalog is the in-memory library shared by request handlers.
type Catalog struct {
	fetcher *Fetcher

	mu       sync.RWMutex
	manifest Manifest
	stale    bool
	loaded   bool
}

// NewCatalog builds an empty catalog backed by fetcher.
func NewCatalog(fetcher *Fetcher) *Catalog {
	return &Catalog{fetcher: fetcher}
}

// Refresh re-fetches the manifest and replaces the catalog contents.
func (catalog *Catalog) Refresh(context context.Context) error {
	manifest, cached, err := catalog.fetcher.Fetch(context)
	if err != nil {
		return err
	}

	catalog.Replace(manifest, cached)
	return nil
}

// Replace swaps in a manifest. stale marks a copy served from the cache.
func (catalog *Catalog) Replace(manifest Manifest, stale bool) {
	catalog.mu.Lock()
	defer catalog.mu.Unlock()

	catalog.manifest = manifest
	catalog.stale = stale
	catalog.loaded = true
}

// Loaded reports whether any manifest has been installed.
func (catalog *Catalog) Loaded() bool {
	catalog.mu.RLock()
	defer catalog.mu.RUnlock()
	return catalog.loaded
}

// Manifest returns a snapshot of the whole library.
func (catalog *Catalog) Manifest() Manifest {
	catalog.mu.RLock()
	defer catalog.mu.RUnlock()
	return append(Manifest(nil), catalog.manifest...)
}

// Stale reports whether the catalog was last filled from the cache.
func (catalog *Catalog) Stale() bool {
	catalog.mu.RLock()
	defer catalog.mu.RUnlock()
	return catalog.stale
}

// Series returns one series by id.
func (catalog *Catalog) Series(id string) (Series, error) {
	catalog.mu.RLock()
	defer catalog.mu.RUnlock()

	series, ok := catalog.manifest.Find(id)
	if !ok {
		return Series{}, apperr.NotFound("Series")
	}
	return *series, nil
}

// ChapterPage is one page of a chapter listing.
type ChapterPage struct {
	Labels []string
	Meta   pagination.Meta
}

/*
Chapters lists the chapters of a series, ChaptersPerPage at a time.

Parameters:
  - id: string (Series id)
  - page: int (1-based)
  - descending: bool (Newest first when true)

Returns:
  - ChapterPage: Labels of the requested page and paging metadata
  - error: NOT_FOUND when the series is unknown
*/
func (catalog *Catalog) Chapters(id string, page int, descending bool) (ChapterPage, error) {
	series, err := catalog.Series(id)
	if err != nil {
		return ChapterPage{}, err
	}

	params := pagination.Params{Page: max(page, 1), Limit: constants.ChaptersPerPage}
	labels := series.SortedChapters(descending)

	start, end := params.Bounds(len(labels))

	return ChapterPage{
		Labels: labels[start:end],
		Meta:   pagination.NewMeta(params.Page, params.Limit, len(labels)),
	}, nil
}
