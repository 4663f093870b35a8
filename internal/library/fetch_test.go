// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package library_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mangashelf/internal/library"
	"github.com/taibuivan/mangashelf/internal/platform/apperr"
)

// staticSource returns fixed bytes or an error.
type staticSource struct {
	name  string
	data  string
	err   error
	calls int
}

func (source *staticSource) Name() string { return source.name }

func (source *staticSource) Fetch(context.Context) ([]byte, error) {
	source.calls++
	return []byte(source.data), source.err
}

/*
TestFetcher_SourceOrder verifies the first manifest-shaped response wins and
later sources are not consulted.
*/
func TestFetcher_SourceOrder(t *testing.T) {
	broken := &staticSource{name: "api", err: errors.New("connection refused")}
	wrongShape := &staticSource{name: "proxy", data: `{"error":"GitHub Error: 500"}`}
	good := &staticSource{name: "raw", data: `[{"id":"foo","chapters":["1"]}]`}
	unused := &staticSource{name: "unused", data: `[]`}

	cache := &library.MemoryCache{}
	fetcher := library.NewFetcher([]library.Source{broken, wrongShape, good, unused}, cache, nil)

	manifest, cached, err := fetcher.Fetch(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "foo", manifest[0].ID)
	assert.Zero(t, unused.calls)

	stored, err := cache.Load(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(stored), `"foo"`)
}

/*
TestFetcher_CacheFallback verifies the cached copy is served when every source fails.
*/
func TestFetcher_CacheFallback(t *testing.T) {
	cache := &library.MemoryCache{}
	require.NoError(t, cache.Store(context.Background(), []byte(`[{"id":"cached"}]`)))

	fetcher := library.NewFetcher([]library.Source{&staticSource{name: "down", err: errors.New("down")}}, cache, nil)

	manifest, cached, err := fetcher.Fetch(context.Background())
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, "cached", manifest[0].ID)
}

/*
TestFetcher_Unavailable verifies a failure with no cache is SERVICE_UNAVAILABLE.
*/
func TestFetcher_Unavailable(t *testing.T) {
	fetcher := library.NewFetcher([]library.Source{&staticSource{name: "down", err: errors.New("down")}}, &library.MemoryCache{}, nil)

	_, _, err := fetcher.Fetch(context.Background())
	assert.True(t, apperr.HasCode(err, apperr.CodeServiceUnavailable))
}

/*
TestHTTPSource verifies non-2xx responses are failures.
*/
func TestHTTPSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/manga.json" {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	data, err := library.HTTPSource{URL: server.URL + "/manga.json"}.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	_, err = library.HTTPSource{URL: server.URL + "/api/library"}.Fetch(context.Background())
	assert.True(t, apperr.HasCode(err, apperr.CodeTransport))
}

/*
TestCaches verifies the Redis and file caches report NOT_FOUND until written.
*/
func TestCaches(t *testing.T) {
	redisServer := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: redisServer.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	caches := map[string]library.Cache{
		"Redis":  library.NewRedisCache(client),
		"File":   library.NewFileCache(filepath.Join(t.TempDir(), "nested", "manifest.json")),
		"Memory": &library.MemoryCache{},
	}

	for name, cache := range caches {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := cache.Load(ctx)
			assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))

			require.NoError(t, cache.Store(ctx, []byte(`[1]`)))
			require.NoError(t, cache.Store(ctx, []byte(`[2]`)))

			data, err := cache.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, `[2]`, string(data))
		})
	}
}
