// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package reader

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/mangashelf/internal/library"
	"github.com/taibuivan/mangashelf/internal/platform/constants"
	"github.com/taibuivan/mangashelf/internal/platform/ctxutil"
	"github.com/taibuivan/mangashelf/internal/platform/middleware"
	requestutil "github.com/taibuivan/mangashelf/internal/platform/request"
	"github.com/taibuivan/mangashelf/internal/platform/respond"
)

// ViewRecorder counts a chapter view. It reports false when the viewer is
// still inside the cooldown window.
type ViewRecorder interface {
	RecordView(context context.Context, seriesID, chapter, viewerID string) (bool, error)
}

// SeriesLookup finds a manifest entry.
type SeriesLookup interface {
	Series(id string) (library.Series, error)
}

// # Handler Implementation

// Handler serves chapter pages to readers.
type Handler struct {
	resolver     *Resolver
	catalog      SeriesLookup
	views        ViewRecorder
	preloadDelay time.Duration
}

// NewHandler builds a handler. views may be nil.
func NewHandler(resolver *Resolver, catalog SeriesLookup, views ViewRecorder) *Handler {
	return &Handler{resolver: resolver, catalog: catalog, views: views, preloadDelay: constants.PreloadDelay}
}

// RegisterRoutes attaches the reader endpoints.
func (handler *Handler) RegisterRoutes(api chi.Router) {
	api.Get("/series/{seriesID}/chapters/{chapter}/pages", handler.GetPages)
}

/*
GET /api/v1/series/{seriesID}/chapters/{chapter}/pages.

Description: Resolves the ordered page URLs of a chapter, counts a view for
the requesting reader and schedules a preload of the next chapter.

Request:
  - seriesID: string
  - chapter: string (Chapter label)
  - X-Viewer-ID: string (Optional stable reader id, defaults to client IP)

Response:
  - 200: Chapter
  - 404: ErrNotFound: Unknown series or chapter
*/
func (handler *Handler) GetPages(writer http.ResponseWriter, request *http.Request) {
	seriesID := requestutil.Param(request, "seriesID")
	label := requestutil.Param(request, "chapter")

	series, err := handler.catalog.Series(seriesID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	chapter, err := handler.resolver.Resolve(request.Context(), series, label)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.trackView(request, seriesID, label)
	handler.resolver.PreloadNext(request.Context(), series, label, handler.preloadDelay)

	respond.OK(writer, chapter)
}

func (handler *Handler) trackView(request *http.Request, seriesID, label string) {
	if handler.views == nil {
		return
	}

	viewer := requestutil.ViewerID(request, middleware.RealIP(request))
	counted, err := handler.views.RecordView(request.Context(), seriesID, label, viewer)

	logger := ctxutil.GetLogger(request.Context())
	if err != nil {
		logger.WarnContext(request.Context(), "view_record_failed", slog.String("error", err.Error()))
		return
	}
	logger.DebugContext(request.Context(), "view_recorded", slog.Bool("counted", counted))
}
