// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package imagehost

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/mangashelf/internal/platform/apperr"
	"github.com/taibuivan/mangashelf/internal/platform/constants"
	requestutil "github.com/taibuivan/mangashelf/internal/platform/request"
	"github.com/taibuivan/mangashelf/internal/platform/respond"
)

// Attachment is returned to the comment box.
type Attachment struct {
	Image
	Markdown string `json:"markdown"`
}

// Handler serves attachment uploads.
type Handler struct {
	client *Client
}

// NewHandler builds a handler around client.
func NewHandler(client *Client) *Handler {
	return &Handler{client: client}
}

// RegisterRoutes attaches the upload endpoint to the v1 router.
func (handler *Handler) RegisterRoutes(api chi.Router) {
	api.Post("/attachments", handler.Upload)
}

/*
POST /api/v1/attachments.

Request:
  - Body: multipart form with one file under "image"

Response:
  - 201: Attachment: Hosted URL and markdown embed
  - 400: Missing file or not an image
  - 502: Host rejected the upload
  - 503: Host not configured
*/
func (handler *Handler) Upload(writer http.ResponseWriter, request *http.Request) {
	files, err := requestutil.Files(request, FieldImage, constants.MaxAttachmentBytes)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	if len(files) == 0 {
		respond.Error(writer, request, apperr.ValidationError("An image is required"))
		return
	}

	// Only the first file is used.
	file := files[0]
	image, err := handler.client.Upload(request.Context(), file.Name, file.Data)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, Attachment{Image: *image, Markdown: image.Markdown()})
}
