// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package presence counts who is online, who is reading each chapter, and how
many times each chapter has been viewed.

Connections and room members are kept in Redis sorted sets scored by their
expiry time, so a client that disappears without leaving drops out after
[constants.PresenceTTL]. View counts are per-series hashes guarded by a
per-viewer cooldown key.

Without Redis the server runs a [NoopTracker]: presence reads as zero and views
are not counted.
*/
package presence

import (
	stdctx "context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/mangashelf/internal/library"
	"github.com/taibuivan/mangashelf/internal/platform/constants"
)

// # Tracker

// Tracker records presence and views.
type Tracker interface {
	// Touch marks a connection online, and in room when room is not empty.
	Touch(context stdctx.Context, connectionID, room string) error
	// Leave removes a connection from room.
	Leave(context stdctx.Context, connectionID, room string) error
	// Disconnect removes a connection and its room membership.
	Disconnect(context stdctx.Context, connectionID, room string) error
	// Online counts live connections.
	Online(context stdctx.Context) (int64, error)
	// Reading counts live members of room.
	Reading(context stdctx.Context, room string) (int64, error)
	// RecordView counts a view unless viewerID is inside the cooldown window.
	RecordView(context stdctx.Context, seriesID, chapter, viewerID string) (bool, error)
	// ChapterViews returns view counts of a series keyed by sanitized chapter label.
	ChapterViews(context stdctx.Context, seriesID string) (map[string]int64, error)
}

// # Redis Implementation

// RedisTracker keeps presence and views in Redis.
type RedisTracker struct {
	client   *redis.Client
	ttl      time.Duration
	cooldown time.Duration
	now      func() time.Time
}

// RedisOption customizes a [RedisTracker].
type RedisOption func(*RedisTracker)

// WithClock replaces the time source used to score memberships.
func WithClock(now func() time.Time) RedisOption {
	return func(tracker *RedisTracker) { tracker.now = now }
}

// NewRedisTracker builds a tracker on client.
func NewRedisTracker(client *redis.Client, opts ...RedisOption) *RedisTracker {
	tracker := &RedisTracker{
		client:   client,
		ttl:      constants.PresenceTTL,
		cooldown: constants.ViewCooldown,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(tracker)
	}
	return tracker
}

func roomKey(room string) string {
	return constants.RedisPrefixRoom + room
}

func viewsKey(seriesID string) string {
	return constants.RedisPrefixViews + library.SanitizeKey(seriesID)
}

func cooldownKey(seriesID, chapter, viewerID string) string {
	return constants.RedisPrefixViewCooldown + library.RoomKey(seriesID, chapter) + ":" + viewerID
}

// Touch refreshes the expiry of the connection and its room membership.
func (tracker *RedisTracker) Touch(context stdctx.Context, connectionID, room string) error {
	expiry := redis.Z{Score: float64(tracker.now().Add(tracker.ttl).Unix()), Member: connectionID}

	_, err := tracker.client.TxPipelined(context, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(context, constants.RedisKeyConnections, expiry)
		if room != "" {
			pipe.ZAdd(context, roomKey(room), expiry)
			pipe.Expire(context, roomKey(room), tracker.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("presence: touch %s: %w", connectionID, err)
	}
	return nil
}

// Leave removes the connection from room.
func (tracker *RedisTracker) Leave(context stdctx.Context, connectionID, room string) error {
	if room == "" {
		return nil
	}
	if err := tracker.client.ZRem(context, roomKey(room), connectionID).Err(); err != nil {
		return fmt.Errorf("presence: leave %s: %w", room, err)
	}
	return nil
}

// Disconnect removes the connection everywhere.
func (tracker *RedisTracker) Disconnect(context stdctx.Context, connectionID, room string) error {
	_, err := tracker.client.TxPipelined(context, func(pipe redis.Pipeliner) error {
		pipe.ZRem(context, constants.RedisKeyConnections, connectionID)
		if room != "" {
			pipe.ZRem(context, roomKey(room), connectionID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("presence: disconnect %s: %w", connectionID, err)
	}
	return nil
}

// Online counts unexpired connections.
func (tracker *RedisTracker) Online(context stdctx.Context) (int64, error) {
	return tracker.live(context, constants.RedisKeyConnections)
}

// Reading counts unexpired members of room.
func (tracker *RedisTracker) Reading(context stdctx.Context, room string) (int64, error) {
	return tracker.live(context, roomKey(room))
}

// live drops expired members of key and counts the rest.
func (tracker *RedisTracker) live(context stdctx.Context, key string) (int64, error) {
	now := strconv.FormatInt(tracker.now().Unix(), 10)

	var count *redis.IntCmd
	_, err := tracker.client.TxPipelined(context, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(context, key, "-inf", "("+now)
		count = pipe.ZCard(context, key)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("presence: count %s: %w", key, err)
	}
	return count.Val(), nil
}

// RecordView increments the chapter's view count once per viewer per cooldown.
func (tracker *RedisTracker) RecordView(context stdctx.Context, seriesID, chapter, viewerID string) (bool, error) {
	fresh, err := tracker.client.SetNX(context, cooldownKey(seriesID, chapter, viewerID), 1, tracker.cooldown).Result()
	if err != nil {
		return false, fmt.Errorf("presence: view cooldown: %w", err)
	}
	if !fresh {
		return false, nil
	}

	if err := tracker.client.HIncrBy(context, viewsKey(seriesID), library.SanitizeKey(chapter), 1).Err(); err != nil {
		return false, fmt.Errorf("presence: count view: %w", err)
	}
	return true, nil
}

// ChapterViews reads the view counts of a series.
func (tracker *RedisTracker) ChapterViews(context stdctx.Context, seriesID string) (map[string]int64, error) {
	raw, err := tracker.client.HGetAll(context, viewsKey(seriesID)).Result()
	if errors.Is(err, redis.Nil) {
		return map[string]int64{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("presence: read views: %w", err)
	}

	views := make(map[string]int64, len(raw))
	for chapter, value := range raw {
		count, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			continue
		}
		views[chapter] = count
	}
	return views, nil
}

// # Degraded Mode

// NoopTracker is used when Redis is unavailable.
type NoopTracker struct{}

func (NoopTracker) Touch(stdctx.Context, string, string) error      { return nil }
func (NoopTracker) Leave(stdctx.Context, string, string) error      { return nil }
func (NoopTracker) Disconnect(stdctx.Context, string, string) error { return nil }
func (NoopTracker) Online(stdctx.Context) (int64, error)            { return 0, nil }
func (NoopTracker) Reading(stdctx.Context, string) (int64, error)   { return 0, nil }

func (NoopTracker) RecordView(stdctx.Context, string, string, string) (bool, error) {
	return false, nil
}

func (NoopTracker) ChapterViews(stdctx.Context, string) (map[string]int64, error) {
	return map[string]int64{}, nil
}
