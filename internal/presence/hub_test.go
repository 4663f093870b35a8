// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package presence_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mangashelf/internal/presence"
	"github.com/taibuivan/mangashelf/pkg/uuid"
)

func newPresenceServer(t *testing.T, tracker presence.Tracker) (*presence.Hub, *httptest.Server) {
	t.Helper()

	hub := presence.NewHub(tracker, presence.WithInterval(time.Hour))
	handler := presence.NewHandler(hub)

	router := chi.NewRouter()
	handler.RegisterSocket(router)
	router.Route("/api/v1", handler.RegisterRoutes)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return hub, server
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/presence" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	var welcome map[string]string
	require.NoError(t, conn.ReadJSON(&welcome))
	assert.Equal(t, presence.MessageWelcome, welcome["type"])
	assert.True(t, uuid.Valid(welcome["id"]))
	return conn
}

func readCounts(t *testing.T, conn *websocket.Conn) presence.Counts {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var counts presence.Counts
	require.NoError(t, conn.ReadJSON(&counts))
	return counts
}

/*
TestHub_Rooms verifies clients get counts on connect and on room changes, and
that a disconnect leaves the room.
*/
func TestHub_Rooms(t *testing.T) {
	tracker, _, _ := newTracker(t)
	hub, server := newPresenceServer(t, tracker)

	first := dial(t, server, "")
	counts := readCounts(t, first)
	assert.Equal(t, presence.LabelOnline, counts.Label)
	assert.Equal(t, int64(1), counts.Count)

	require.NoError(t, first.WriteJSON(presence.Message{Type: presence.MessageEnter, Series: "foo", Chapter: "1"}))
	counts = readCounts(t, first)
	assert.Equal(t, presence.LabelReading, counts.Label)
	assert.Equal(t, "foo_1", counts.Room)
	assert.Equal(t, int64(1), counts.Reading)

	second := dial(t, server, "?series=foo&ch=1")
	counts = readCounts(t, second)
	assert.Equal(t, int64(2), counts.Online)
	assert.Equal(t, int64(2), counts.Count)

	require.NoError(t, second.Close())

	assert.Eventually(t, func() bool {
		reading, err := tracker.Reading(context.Background(), "foo_1")
		return err == nil && reading == 1 && hub.Stats() == 1
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, first.WriteJSON(presence.Message{Type: presence.MessageLeave}))
	counts = readCounts(t, first)
	assert.Equal(t, presence.LabelOnline, counts.Label)
	assert.Equal(t, int64(1), counts.Count)
}

/*
TestHandler_GetCounts verifies the polling endpoint.
*/
func TestHandler_GetCounts(t *testing.T) {
	tracker, _, _ := newTracker(t)
	_, server := newPresenceServer(t, tracker)

	ctx := context.Background()
	require.NoError(t, tracker.Touch(ctx, "c1", "foo_1"))
	require.NoError(t, tracker.Touch(ctx, "c2", "foo_1"))
	require.NoError(t, tracker.Touch(ctx, "c3", ""))

	response, err := http.Get(server.URL + "/api/v1/presence?series=foo&ch=1")
	require.NoError(t, err)
	defer response.Body.Close()

	var body struct {
		Data presence.Counts `json:"data"`
	}
	require.Equal(t, http.StatusOK, response.StatusCode)
	require.NoError(t, json.NewDecoder(response.Body).Decode(&body))
	assert.Equal(t, int64(3), body.Data.Online)
	assert.Equal(t, int64(2), body.Data.Count)
	assert.Equal(t, presence.LabelReading, body.Data.Label)
}
