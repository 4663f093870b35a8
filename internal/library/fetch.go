// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/sync/singleflight"

	"github.com/taibuivan/mangashelf/internal/platform/apperr"
	"github.com/taibuivan/mangashelf/internal/platform/constants"
	"github.com/taibuivan/mangashelf/pkg/result"
)

// # Sources

// Source yields the raw manifest document.
type Source interface {
	Name() string
	Fetch(context context.Context) ([]byte, error)
}

// HTTPSource fetches the manifest from a public URL.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

// Name returns the source URL.
func (source HTTPSource) Name() string { return source.URL }

// Fetch performs a GET and returns the body of a 2xx response.
func (source HTTPSource) Fetch(context context.Context) ([]byte, error) {
	client := source.Client
	if client == nil {
		client = &http.Client{Timeout: constants.StoreHTTPTimeout}
	}

	request, err := http.NewRequestWithContext(context, http.MethodGet, source.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("library: build request: %w", err)
	}
	request.Header.Set("Accept", "application/json")

	response, err := client.Do(request)
	if err != nil {
		return nil, apperr.Transport("Manifest source unreachable", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, apperr.Transport(fmt.Sprintf("Manifest source answered %d", response.StatusCode), nil)
	}

	return io.ReadAll(response.Body)
}

// RawReader reads raw file bytes from the content store.
type RawReader interface {
	ReadRaw(context context.Context, path, ref string) ([]byte, error)
}

// StoreSource reads the manifest straight from the content store.
type StoreSource struct {
	Store RawReader
	Path  string
}

// Name returns the store path.
func (source StoreSource) Name() string { return "store:" + source.Path }

// Fetch reads the manifest at the branch head.
func (source StoreSource) Fetch(context context.Context) ([]byte, error) {
	return source.Store.ReadRaw(context, source.Path, "")
}

// # Fetcher

// Fetcher loads the manifest from ordered sources and falls back to a cache.
type Fetcher struct {
	sources []Source
	cache   Cache
	logger  *slog.Logger
	group   singleflight.Group
}

// NewFetcher builds a fetcher. cache may be nil.
func NewFetcher(sources []Source, cache Cache, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{sources: sources, cache: cache, logger: logger}
}

/*
Fetch returns the first manifest any source yields.

Description: Sources are tried in order and the first document shaped like a
manifest wins and is written to the cache. When every source fails the cached
copy is returned. Concurrent calls share one round of fetching.

Returns:
  - Manifest: The decoded manifest
  - bool: True when served from the cache
  - error: SERVICE_UNAVAILABLE when no source and no cache succeeded
*/
func (fetcher *Fetcher) Fetch(context context.Context) (Manifest, bool, error) {
	value, err, _ := fetcher.group.Do("manifest", func() (any, error) {
		return fetcher.fetch(context)
	})
	if err != nil {
		return nil, false, err
	}

	outcome := value.(fetchOutcome)
	return outcome.manifest, outcome.cached, nil
}

type fetchOutcome struct {
	manifest Manifest
	cached   bool
}

func (fetcher *Fetcher) fetch(context context.Context) (fetchOutcome, error) {
	attempts := make([]result.Result[Manifest], 0, len(fetcher.sources))

	for _, source := range fetcher.sources {
		attempt := result.AndThen(result.Try(func() ([]byte, error) { return source.Fetch(context) }), Parse)
		attempts = append(attempts, attempt)

		manifest, err := attempt.Get()
		if err != nil {
			fetcher.logger.WarnContext(context, "manifest_source_failed",
				slog.String("source", source.Name()),
				slog.String("error", err.Error()),
			)
			continue
		}

		fetcher.remember(context, manifest)
		return fetchOutcome{manifest: manifest}, nil
	}

	_, failures := result.Partition(attempts)

	if fetcher.cache != nil {
		data, err := fetcher.cache.Load(context)
		if err == nil {
			if manifest, err := Parse(data); err == nil {
				fetcher.logger.InfoContext(context, "manifest_served_from_cache", slog.Int("failed_sources", len(failures)))
				return fetchOutcome{manifest: manifest, cached: true}, nil
			}
		}
	}

	unavailable := apperr.ServiceUnavailable("Library unavailable")
	unavailable.Cause = errors.Join(failures...)
	return fetchOutcome{}, unavailable
}

func (fetcher *Fetcher) remember(context context.Context, manifest Manifest) {
	if fetcher.cache == nil {
		return
	}

	data, err := manifest.Encode()
	if err == nil {
		err = fetcher.cache.Store(context, data)
	}
	if err != nil {
		fetcher.logger.WarnContext(context, "manifest_cache_write_failed", slog.String("error", err.Error()))
	}
}
