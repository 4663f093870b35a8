// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package presence

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/mangashelf/internal/library"
	requestutil "github.com/taibuivan/mangashelf/internal/platform/request"
	"github.com/taibuivan/mangashelf/internal/platform/respond"
)

// Handler exposes presence over websocket and plain HTTP.
type Handler struct {
	hub *Hub
}

// NewHandler builds a handler around hub.
func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// RegisterSocket attaches the websocket endpoint at the router root.
func (handler *Handler) RegisterSocket(router chi.Router) {
	router.Get("/ws/presence", handler.hub.ServeWS)
}

// RegisterRoutes attaches the polling endpoint to the v1 router.
func (handler *Handler) RegisterRoutes(api chi.Router) {
	api.Get("/presence", handler.GetCounts)
}

/*
GET /api/v1/presence.

Request:
  - Query: series, ch (optional)

Response:
  - 200: Counts: Online count, or the chapter's readers when both keys are set
*/
func (handler *Handler) GetCounts(writer http.ResponseWriter, request *http.Request) {
	var room string
	series, chapter := requestutil.Query(request, "series"), requestutil.Query(request, "ch")
	if series != "" && chapter != "" {
		room = library.RoomKey(series, chapter)
	}

	counts, err := Snapshot(request.Context(), handler.hub.Tracker(), room)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, counts)
}
