// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package presence_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mangashelf/internal/platform/constants"
	"github.com/taibuivan/mangashelf/internal/presence"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTracker(t *testing.T) (*presence.RedisTracker, *miniredis.Miniredis, *clock) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := &clock{now: time.Unix(1_700_000_000, 0)}
	return presence.NewRedisTracker(client, presence.WithClock(c.Now)), server, c
}

/*
TestRedisTracker_Presence verifies online and room counts follow touch, leave
and disconnect.
*/
func TestRedisTracker_Presence(t *testing.T) {
	tracker, _, _ := newTracker(t)
	ctx := context.Background()

	require.NoError(t, tracker.Touch(ctx, "c1", ""))
	require.NoError(t, tracker.Touch(ctx, "c2", "foo_1"))
	require.NoError(t, tracker.Touch(ctx, "c3", "foo_1"))

	online, err := tracker.Online(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), online)

	reading, err := tracker.Reading(ctx, "foo_1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), reading)

	require.NoError(t, tracker.Leave(ctx, "c3", "foo_1"))
	reading, _ = tracker.Reading(ctx, "foo_1")
	assert.Equal(t, int64(1), reading)

	require.NoError(t, tracker.Disconnect(ctx, "c2", "foo_1"))
	online, _ = tracker.Online(ctx)
	reading, _ = tracker.Reading(ctx, "foo_1")
	assert.Equal(t, int64(2), online)
	assert.Equal(t, int64(0), reading)
}

/*
TestRedisTracker_Expiry verifies members that stop touching drop out after the
presence TTL while refreshed members stay.
*/
func TestRedisTracker_Expiry(t *testing.T) {
	tracker, _, c := newTracker(t)
	ctx := context.Background()

	require.NoError(t, tracker.Touch(ctx, "stale", "foo_1"))
	require.NoError(t, tracker.Touch(ctx, "alive", "foo_1"))

	c.Advance(constants.PresenceTTL / 2)
	require.NoError(t, tracker.Touch(ctx, "alive", "foo_1"))

	c.Advance(constants.PresenceTTL/2 + time.Second)

	online, err := tracker.Online(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), online)

	reading, err := tracker.Reading(ctx, "foo_1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), reading)
}

/*
TestRedisTracker_Views verifies the per-viewer cooldown and sanitized chapter
keys.
*/
func TestRedisTracker_Views(t *testing.T) {
	tracker, server, _ := newTracker(t)
	ctx := context.Background()

	counted, err := tracker.RecordView(ctx, "foo", "7.5", "v1")
	require.NoError(t, err)
	assert.True(t, counted)

	counted, err = tracker.RecordView(ctx, "foo", "7.5", "v1")
	require.NoError(t, err)
	assert.False(t, counted)

	counted, err = tracker.RecordView(ctx, "foo", "7.5", "v2")
	require.NoError(t, err)
	assert.True(t, counted)

	views, err := tracker.ChapterViews(ctx, "foo")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"7_5": 2}, views)

	server.FastForward(constants.ViewCooldown + time.Second)

	counted, err = tracker.RecordView(ctx, "foo", "7.5", "v1")
	require.NoError(t, err)
	assert.True(t, counted)

	views, _ = tracker.ChapterViews(ctx, "foo")
	assert.Equal(t, int64(3), views["7_5"])

	empty, err := tracker.ChapterViews(ctx, "nothing")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

/*
TestDisplay verifies the room count is shown with a floor of one and the
global count outside a room.
*/
func TestDisplay(t *testing.T) {
	tests := []struct {
		name    string
		online  int64
		reading int64
		room    string
		label   string
		count   int64
	}{
		{"Home", 5, 0, "", presence.LabelOnline, 5},
		{"AloneInRoom", 5, 0, "foo_1", presence.LabelReading, 1},
		{"Room", 5, 3, "foo_1", presence.LabelReading, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counts := presence.Display(tt.online, tt.reading, tt.room)
			assert.Equal(t, tt.label, counts.Label)
			assert.Equal(t, tt.count, counts.Count)
			assert.Equal(t, presence.MessageCounts, counts.Type)
		})
	}
}

/*
TestNoopTracker verifies degraded mode reads zero and counts nothing.
*/
func TestNoopTracker(t *testing.T) {
	ctx := context.Background()
	var tracker presence.Tracker = presence.NoopTracker{}

	counted, err := tracker.RecordView(ctx, "foo", "1", "v1")
	require.NoError(t, err)
	assert.False(t, counted)

	counts, err := presence.Snapshot(ctx, tracker, "foo_1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), counts.Online)
	assert.Equal(t, int64(1), counts.Count)
}
