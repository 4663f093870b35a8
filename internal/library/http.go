// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package library

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/mangashelf/internal/platform/constants"
	"github.com/taibuivan/mangashelf/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/mangashelf/internal/platform/request"
	"github.com/taibuivan/mangashelf/internal/platform/respond"
	"github.com/taibuivan/mangashelf/pkg/convert"
)

// ProxyCacheControl lets edge caches serve a slightly stale manifest.
const ProxyCacheControl = "public, max-age=60, s-maxage=60, stale-while-revalidate=600"

// ViewCounter reports per-chapter view counts of a series.
type ViewCounter interface {
	ChapterViews(context context.Context, seriesID string) (map[string]int64, error)
}

// # Handler Implementation

// Handler serves the manifest proxy and the catalogue endpoints.
type Handler struct {
	catalog  *Catalog
	upstream Source
	views    ViewCounter
}

// NewHandler builds a handler. views may be nil.
func NewHandler(catalog *Catalog, upstream Source, views ViewCounter) *Handler {
	return &Handler{catalog: catalog, upstream: upstream, views: views}
}

// RegisterProxy attaches the public manifest proxy at the router root.
func (handler *Handler) RegisterProxy(router chi.Router) {
	router.Get("/api/library", handler.Proxy)
}

// RegisterRoutes attaches the catalogue endpoints to the v1 router.
func (handler *Handler) RegisterRoutes(api chi.Router) {
	api.Get("/series", handler.ListSeries)
	api.Get("/series/{seriesID}", handler.GetSeries)
	api.Get("/series/{seriesID}/chapters", handler.ListChapters)
}

// # Manifest Proxy

/*
GET /api/library.

Description: Relays the manifest document from the content store byte for
byte so reader clients never hold store credentials.

Response:
  - 200: Raw manifest JSON, cacheable for 60s
  - 503: {"error": "..."}: Upstream unavailable
*/
func (handler *Handler) Proxy(writer http.ResponseWriter, request *http.Request) {
	data, err := handler.upstream.Fetch(request.Context())
	if err != nil {
		ctxutil.GetLogger(request.Context()).WarnContext(request.Context(), "library_proxy_upstream_failed",
			slog.String("source", handler.upstream.Name()),
			slog.String("error", err.Error()),
		)
		respond.JSON(writer, http.StatusServiceUnavailable, map[string]string{constants.FieldError: "Upstream error: " + err.Error()})
		return
	}

	writer.Header().Set("Content-Type", "application/json;charset=UTF-8")
	writer.Header().Set("Cache-Control", ProxyCacheControl)
	writer.Header().Set("Access-Control-Allow-Origin", "*")
	writer.WriteHeader(http.StatusOK)
	_, _ = writer.Write(data)
}

// # Catalogue

type seriesSummary struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Cover    string `json:"cover"`
	Chapters int    `json:"chapters"`
}

/*
GET /api/v1/series.

Response:
  - 200: []seriesSummary: Every series in manifest order
*/
func (handler *Handler) ListSeries(writer http.ResponseWriter, request *http.Request) {
	manifest := handler.catalog.Manifest()

	items := make([]seriesSummary, 0, len(manifest))
	for _, series := range manifest {
		items = append(items, seriesSummary{ID: series.ID, Title: series.DisplayTitle(), Cover: series.Cover, Chapters: len(series.Chapters)})
	}

	respond.OK(writer, map[string]any{
		constants.FieldItems: items,
		constants.FieldTotal: len(items),
		"stale":              handler.catalog.Stale(),
	})
}

/*
GET /api/v1/series/{seriesID}.

Response:
  - 200: Series
  - 404: ErrNotFound: Unknown series
*/
func (handler *Handler) GetSeries(writer http.ResponseWriter, request *http.Request) {
	series, err := handler.catalog.Series(requestutil.Param(request, "seriesID"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	series.Title = series.DisplayTitle()
	respond.OK(writer, series)
}

type chapterItem struct {
	Label    string `json:"label"`
	Archived bool   `json:"archived"`
	Views    int64  `json:"views"`
}

/*
GET /api/v1/series/{seriesID}/chapters.

Description: Lists chapters five at a time in natural order.

Request:
  - page: int (1-based, default 1)
  - dir: string (asc, desc; default desc)

Response:
  - 200: []chapterItem with pagination meta
  - 404: ErrNotFound: Unknown series
*/
func (handler *Handler) ListChapters(writer http.ResponseWriter, request *http.Request) {
	seriesID := requestutil.Param(request, "seriesID")

	page := convert.ToIntD(requestutil.Query(request, "page"), 1)
	descending := requestutil.Query(request, "dir") != "asc"

	listing, err := handler.catalog.Chapters(seriesID, page, descending)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	series, _ := handler.catalog.Series(seriesID)
	views := handler.chapterViews(request, seriesID)

	items := make([]chapterItem, 0, len(listing.Labels))
	for _, label := range listing.Labels {
		items = append(items, chapterItem{
			Label:    label,
			Archived: series.IsArchived(label),
			Views:    views[SanitizeKey(label)],
		})
	}

	respond.Paginated(writer, items, listing.Meta)
}

// chapterViews never fails the listing; counts are cosmetic.
func (handler *Handler) chapterViews(request *http.Request, seriesID string) map[string]int64 {
	if handler.views == nil {
		return nil
	}

	views, err := handler.views.ChapterViews(request.Context(), seriesID)
	if err != nil {
		ctxutil.GetLogger(request.Context()).DebugContext(request.Context(), "chapter_views_unavailable", slog.String("error", err.Error()))
		return nil
	}
	return views
}
