// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/mangashelf/internal/platform/constants"
	"github.com/taibuivan/mangashelf/internal/platform/middleware"
	requestutil "github.com/taibuivan/mangashelf/internal/platform/request"
	"github.com/taibuivan/mangashelf/internal/platform/respond"
	"github.com/taibuivan/mangashelf/internal/platform/sec"
)

// # Handler Implementation

// Handler exposes the admin workflows over HTTP.
type Handler struct {
	dispatcher *Dispatcher
}

// NewHandler builds the admin handler.
func NewHandler(dispatcher *Dispatcher) *Handler {
	return &Handler{dispatcher: dispatcher}
}

// RegisterRoutes attaches the admin endpoints. The router must already
// authenticate requests.
func (handler *Handler) RegisterRoutes(router chi.Router) {
	router.Route("/admin", func(r chi.Router) {
		r.With(middleware.RequireRole(sec.RoleUploader)).Post("/uploads", handler.Upload)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(sec.RoleAdmin))

			r.Get("/dashboard", handler.GetDashboard)
			r.Get("/pending-deletes", handler.ListPendingDeletes)
			r.Get("/series/{seriesID}/chapters/{chapter}/images", handler.ListImages)
			r.Post("/series/{seriesID}/chapters/{chapter}/images/delete", handler.DeleteImages)
			r.Post("/series/{seriesID}/chapters/{chapter}/migrate", handler.QueueMigration)
			r.Delete("/series/{seriesID}/chapters/{chapter}", handler.DeleteChapter)
			r.Delete("/series/{seriesID}", handler.DeleteSeries)

			r.Post("/maintenance", handler.TriggerMaintenance)
			r.Post("/deploy", handler.TriggerDeploy)
			r.Get("/deploy", handler.GetDeployStatus)
		})
	})
}

// # Queries

/*
GET /api/v1/admin/dashboard.

Response:
  - 200: Dashboard
*/
func (handler *Handler) GetDashboard(writer http.ResponseWriter, request *http.Request) {
	dashboard, err := handler.dispatcher.Service().Dashboard(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, dashboard)
}

// ListPendingDeletes handles GET /api/v1/admin/pending-deletes.
func (handler *Handler) ListPendingDeletes(writer http.ResponseWriter, request *http.Request) {
	queue, err := handler.dispatcher.Service().PendingDeletes(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, queue)
}

/*
GET /api/v1/admin/series/{seriesID}/chapters/{chapter}/images.

Response:
  - 200: []Image
  - 404: ErrNotFound
  - 422: UNSUPPORTED_ARCHIVE: Legacy archive descriptor
*/
func (handler *Handler) ListImages(writer http.ResponseWriter, request *http.Request) {
	images, err := handler.dispatcher.Service().ListChapterImages(request.Context(),
		requestutil.Param(request, "seriesID"),
		requestutil.Param(request, "chapter"),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, images)
}

// GetDeployStatus handles GET /api/v1/admin/deploy with one status poll.
func (handler *Handler) GetDeployStatus(writer http.ResponseWriter, request *http.Request) {
	progress, err := handler.dispatcher.Service().DeployStatus(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, progress)
}

// # Mutations

/*
POST /api/v1/admin/uploads.

Request (multipart/form-data):
  - series: string (Series id, derived from title when empty)
  - title: string (Optional display title for a new series)
  - kind: string (page | cover)
  - chapter: string (Required for pages)
  - files: file[] (Source images, in order)

Response:
  - 201: UploadResult
  - 400: VALIDATION_ERROR
  - 422: UNPROCESSABLE: An image could not be processed, nothing was committed
*/
func (handler *Handler) Upload(writer http.ResponseWriter, request *http.Request) {
	files, err := requestutil.Files(request, FieldFiles, constants.MaxUploadBytes)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	upload := UploadRequest{
		SeriesID: request.FormValue(FieldSeries),
		Title:    request.FormValue("title"),
		Kind:     UploadKind(request.FormValue(FieldKind)),
		Chapter:  request.FormValue(FieldChapter),
	}
	for _, file := range files {
		upload.Files = append(upload.Files, UploadFile{Name: file.Name, Data: file.Data})
	}

	outcome, err := handler.dispatch(request, UploadCommand{Request: upload})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, outcome)
}

// DeleteChapter handles DELETE /api/v1/admin/series/{seriesID}/chapters/{chapter}.
func (handler *Handler) DeleteChapter(writer http.ResponseWriter, request *http.Request) {
	handler.respondDelete(writer, request, DeleteChapterCommand{
		SeriesID: requestutil.Param(request, "seriesID"),
		Chapter:  requestutil.Param(request, "chapter"),
	})
}

// DeleteSeries handles DELETE /api/v1/admin/series/{seriesID}.
func (handler *Handler) DeleteSeries(writer http.ResponseWriter, request *http.Request) {
	handler.respondDelete(writer, request, DeleteSeriesCommand{SeriesID: requestutil.Param(request, "seriesID")})
}

// QueueMigration handles POST /api/v1/admin/series/{seriesID}/chapters/{chapter}/migrate.
func (handler *Handler) QueueMigration(writer http.ResponseWriter, request *http.Request) {
	handler.respondDelete(writer, request, QueueMigrationCommand{
		SeriesID: requestutil.Param(request, "seriesID"),
		Chapter:  requestutil.Param(request, "chapter"),
	})
}

type deleteImagesBody struct {
	Names []string `json:"names"`
}

/*
POST /api/v1/admin/series/{seriesID}/chapters/{chapter}/images/delete.

Request:
  - names: []string (File names to delete)

Response:
  - 200: DeleteResult
  - 207: PARTIAL_FAILURE with succeeded and failed counts
*/
func (handler *Handler) DeleteImages(writer http.ResponseWriter, request *http.Request) {
	var body deleteImagesBody
	if err := requestutil.DecodeJSON(request, &body); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.respondDelete(writer, request, DeleteImagesCommand{
		SeriesID: requestutil.Param(request, "seriesID"),
		Chapter:  requestutil.Param(request, "chapter"),
		Names:    body.Names,
	})
}

// TriggerMaintenance handles POST /api/v1/admin/maintenance.
func (handler *Handler) TriggerMaintenance(writer http.ResponseWriter, request *http.Request) {
	if _, err := handler.dispatch(request, MaintenanceCommand{}); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Accepted(writer, map[string]string{constants.FieldMessage: "Maintenance queued"})
}

// TriggerDeploy handles POST /api/v1/admin/deploy. Progress is polled with GET.
func (handler *Handler) TriggerDeploy(writer http.ResponseWriter, request *http.Request) {
	if _, err := handler.dispatch(request, DeployCommand{}); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Accepted(writer, DeployProgress{Step: StepTrigger, Percent: 15, Message: "Waiting for workflow to start..."})
}

// respondDelete answers 202 when work was queued and 200 when files were deleted.
func (handler *Handler) respondDelete(writer http.ResponseWriter, request *http.Request, command Command) {
	outcome, err := handler.dispatch(request, command)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if deleted, ok := outcome.(*DeleteResult); ok && deleted.Queued != "" {
		respond.Accepted(writer, deleted)
		return
	}
	respond.OK(writer, outcome)
}

func (handler *Handler) dispatch(request *http.Request, command Command) (any, error) {
	actor := Actor{IP: middleware.RealIP(request)}
	if claims := requestutil.Claims(request); claims != nil {
		actor.ID = claims.UserID
	}
	return handler.dispatcher.Dispatch(request.Context(), actor, command)
}
