// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package library

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/mangashelf/internal/platform/apperr"
	"github.com/taibuivan/mangashelf/internal/platform/constants"
)

// # Cache

// Cache keeps the last manifest successfully fetched. Writes are last-writer-wins.
type Cache interface {
	// Load returns NOT_FOUND when nothing has been stored yet.
	Load(context context.Context) ([]byte, error)
	Store(context context.Context, data []byte) error
}

// RedisCache shares the manifest between server instances.
type RedisCache struct {
	client *redis.Client
	key    string
}

// NewRedisCache stores the manifest under the default manifest key.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, key: constants.RedisKeyManifest}
}

// Load reads the cached manifest.
func (cache *RedisCache) Load(context context.Context) ([]byte, error) {
	data, err := cache.client.Get(context, cache.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperr.NotFound("Cached manifest")
	}
	if err != nil {
		return nil, fmt.Errorf("library: redis load: %w", err)
	}
	return data, nil
}

// Store replaces the cached manifest. Entries never expire.
func (cache *RedisCache) Store(context context.Context, data []byte) error {
	if err := cache.client.Set(context, cache.key, data, 0).Err(); err != nil {
		return fmt.Errorf("library: redis store: %w", err)
	}
	return nil
}

// FileCache keeps the manifest in a local file for command-line use.
type FileCache struct {
	path string
	mu   sync.Mutex
}

// NewFileCache caches at path, creating parent directories on first write.
func NewFileCache(path string) *FileCache {
	return &FileCache{path: path}
}

// DefaultFileCachePath returns the per-user cache location.
func DefaultFileCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, constants.AppName, "manifest.json")
}

// Load reads the cached manifest.
func (cache *FileCache) Load(_ context.Context) ([]byte, error) {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	data, err := os.ReadFile(cache.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperr.NotFound("Cached manifest")
	}
	return data, err
}

// Store writes through a temporary file so readers never see a partial document.
func (cache *FileCache) Store(_ context.Context, data []byte) error {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(cache.path), 0o755); err != nil {
		return fmt.Errorf("library: create cache dir: %w", err)
	}

	tmp := cache.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("library: write cache: %w", err)
	}
	return os.Rename(tmp, cache.path)
}

// MemoryCache is a process-local cache used when Redis is unavailable.
type MemoryCache struct {
	mu   sync.RWMutex
	data []byte
}

// Load reads the cached manifest.
func (cache *MemoryCache) Load(_ context.Context) ([]byte, error) {
	cache.mu.RLock()
	defer cache.mu.RUnlock()

	if cache.data == nil {
		return nil, apperr.NotFound("Cached manifest")
	}
	return append([]byte(nil), cache.data...), nil
}

// Store replaces the cached manifest.
func (cache *MemoryCache) Store(_ context.Context, data []byte) error {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	cache.data = append([]byte(nil), data...)
	return nil
}
