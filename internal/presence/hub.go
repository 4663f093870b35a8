// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package presence

import (
	stdctx "context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/taibuivan/mangashelf/internal/library"
	"github.com/taibuivan/mangashelf/internal/platform/constants"
	"github.com/taibuivan/mangashelf/pkg/uuid"
)

// # Wire Messages

// Client message types.
const (
	MessageEnter = "enter"
	MessageLeave = "leave"
	MessagePing  = "ping"
)

// Server message types.
const (
	MessageWelcome = "welcome"
	MessageCounts  = "counts"
)

// Display labels.
const (
	LabelOnline  = "Online"
	LabelReading = "Reading"
)

// Message is sent by a client to move between rooms.
type Message struct {
	Type    string `json:"type"`
	Series  string `json:"series,omitempty"`
	Chapter string `json:"ch,omitempty"`
}

// Counts is pushed to a client after every change and on every poll.
type Counts struct {
	Type    string `json:"type"`
	Online  int64  `json:"online"`
	Reading int64  `json:"reading"`
	Room    string `json:"room,omitempty"`
	Label   string `json:"label"`
	Count   int64  `json:"count"`
}

// Display picks what a client shows: the chapter's readers while in a room,
// never fewer than the viewer itself, otherwise the global count.
func Display(online, reading int64, room string) Counts {
	counts := Counts{Type: MessageCounts, Online: online, Reading: reading, Room: room}
	if room == "" {
		counts.Label = LabelOnline
		counts.Count = online
		return counts
	}

	counts.Label = LabelReading
	counts.Count = max(reading, 1)
	return counts
}

// # Hub

// Hub tracks the websocket clients of this process.
type Hub struct {
	tracker  Tracker
	upgrader websocket.Upgrader
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	id   string
	conn *websocket.Conn

	// mu serializes writes and guards room.
	mu   sync.Mutex
	room string
}

// HubOption customizes a [Hub].
type HubOption func(*Hub)

// WithInterval overrides how often counts are pushed.
func WithInterval(interval time.Duration) HubOption {
	return func(hub *Hub) { hub.interval = interval }
}

// WithOriginCheck restricts which browser origins may connect.
func WithOriginCheck(allowed func(origin string) bool) HubOption {
	return func(hub *Hub) {
		hub.upgrader.CheckOrigin = func(request *http.Request) bool {
			origin := request.Header.Get(constants.HeaderOrigin)
			return origin == "" || allowed(origin)
		}
	}
}

// WithHubLogger sets the hub logger.
func WithHubLogger(logger *slog.Logger) HubOption {
	return func(hub *Hub) { hub.logger = logger }
}

// NewHub builds a hub over tracker.
func NewHub(tracker Tracker, opts ...HubOption) *Hub {
	hub := &Hub{
		tracker: tracker,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		interval: constants.PresencePollInterval,
		logger:   slog.Default(),
		clients:  make(map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(hub)
	}
	return hub
}

// Tracker returns the underlying tracker.
func (hub *Hub) Tracker() Tracker {
	return hub.tracker
}

// Stats reports the number of sockets held by this process.
func (hub *Hub) Stats() int {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	return len(hub.clients)
}

func (hub *Hub) add(c *client) {
	hub.mu.Lock()
	hub.clients[c] = struct{}{}
	hub.mu.Unlock()
}

func (hub *Hub) remove(c *client) {
	hub.mu.Lock()
	delete(hub.clients, c)
	hub.mu.Unlock()
}

// # Connection Lifecycle

/*
ServeWS upgrades the request and keeps the client's presence alive until it
disconnects.

Request:
  - Query: series, ch (optional, joins that chapter's room immediately)

Description: Sends a welcome message with the connection id, then counts.
Clients switch rooms with enter/leave messages and may ping to refresh
counts early. Counts are also pushed every poll interval.
*/
func (hub *Hub) ServeWS(writer http.ResponseWriter, request *http.Request) {
	conn, err := hub.upgrader.Upgrade(writer, request, nil)
	if err != nil {
		hub.logger.Warn("presence_upgrade_failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	context, cancel := stdctx.WithCancel(request.Context())
	defer cancel()

	c := &client{id: uuid.New(), conn: conn}
	if series := request.URL.Query().Get("series"); series != "" {
		if chapter := request.URL.Query().Get("ch"); chapter != "" {
			c.room = library.RoomKey(series, chapter)
		}
	}

	hub.add(c)
	defer hub.disconnect(c)

	if err := c.write(map[string]string{"type": MessageWelcome, "id": c.id}); err != nil {
		return
	}
	hub.refresh(context, c)

	go hub.pushLoop(context, c)
	hub.readLoop(context, c)
}

func (hub *Hub) disconnect(c *client) {
	hub.remove(c)

	// The request context is gone by now.
	context, cancel := stdctx.WithTimeout(stdctx.Background(), constants.ProbeTimeout)
	defer cancel()

	if err := hub.tracker.Disconnect(context, c.id, c.currentRoom()); err != nil {
		hub.logger.Warn("presence_disconnect_failed", slog.String("connection_id", c.id), slog.Any("error", err))
	}
}

func (hub *Hub) readLoop(context stdctx.Context, c *client) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			hub.logger.Debug("presence_message_malformed", slog.String("connection_id", c.id))
			continue
		}

		switch message.Type {
		case MessageEnter:
			if message.Series == "" || message.Chapter == "" {
				continue
			}
			hub.move(context, c, library.RoomKey(message.Series, message.Chapter))
		case MessageLeave:
			hub.move(context, c, "")
		case MessagePing:
		default:
			continue
		}

		hub.refresh(context, c)
	}
}

func (hub *Hub) pushLoop(context stdctx.Context, c *client) {
	ticker := time.NewTicker(hub.interval)
	defer ticker.Stop()

	for {
		select {
		case <-context.Done():
			return
		case <-ticker.C:
			hub.refresh(context, c)
		}
	}
}

// move switches the client to room, leaving the previous one.
func (hub *Hub) move(context stdctx.Context, c *client, room string) {
	c.mu.Lock()
	previous := c.room
	c.room = room
	c.mu.Unlock()

	if previous != "" && previous != room {
		if err := hub.tracker.Leave(context, c.id, previous); err != nil {
			hub.logger.Warn("presence_leave_failed", slog.String("room", previous), slog.Any("error", err))
		}
	}
}

// refresh renews the client's heartbeat and pushes the current counts.
func (hub *Hub) refresh(context stdctx.Context, c *client) {
	room := c.currentRoom()

	if err := hub.tracker.Touch(context, c.id, room); err != nil {
		hub.logger.Warn("presence_touch_failed", slog.String("connection_id", c.id), slog.Any("error", err))
	}

	counts, err := Snapshot(context, hub.tracker, room)
	if err != nil {
		hub.logger.Warn("presence_count_failed", slog.String("room", room), slog.Any("error", err))
		return
	}

	if err := c.write(counts); err != nil {
		hub.logger.Debug("presence_push_failed", slog.String("connection_id", c.id), slog.Any("error", err))
	}
}

// Snapshot reads the counts shown for room.
func Snapshot(context stdctx.Context, tracker Tracker, room string) (Counts, error) {
	online, err := tracker.Online(context)
	if err != nil {
		return Counts{}, err
	}

	var reading int64
	if room != "" {
		if reading, err = tracker.Reading(context, room); err != nil {
			return Counts{}, err
		}
	}

	return Display(online, reading, room), nil
}

func (c *client) currentRoom() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

func (c *client) write(payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(payload)
}
