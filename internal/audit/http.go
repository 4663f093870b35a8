// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package audit

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/mangashelf/internal/platform/constants"
	"github.com/taibuivan/mangashelf/internal/platform/middleware"
	requestutil "github.com/taibuivan/mangashelf/internal/platform/request"
	"github.com/taibuivan/mangashelf/internal/platform/respond"
	"github.com/taibuivan/mangashelf/internal/platform/sec"
	"github.com/taibuivan/mangashelf/internal/platform/validate"
)

// Handler lists the audit trail.
type Handler struct {
	reader Reader
}

// NewHandler builds a handler over reader.
func NewHandler(reader Reader) *Handler {
	return &Handler{reader: reader}
}

// RegisterRoutes attaches the listing under /admin.
func (handler *Handler) RegisterRoutes(router chi.Router) {
	router.With(middleware.RequireRole(sec.RoleAdmin)).Get("/admin/audit", handler.ListRecent)
}

/*
GET /api/v1/admin/audit.

Request:
  - limit: int (Optional, 1..200, default 50)

Response:
  - 200: []Entry: Newest first
*/
func (handler *Handler) ListRecent(writer http.ResponseWriter, request *http.Request) {
	limit := constants.AuditDefaultLimit
	if raw := requestutil.Query(request, "limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		validator := &validate.Validator{}
		validator.Custom("limit", err != nil, "Must be a number")
		if err == nil {
			validator.Range("limit", parsed, 1, constants.AuditMemoryCapacity)
		}
		if err := validator.Err(); err != nil {
			respond.Error(writer, request, err)
			return
		}
		limit = parsed
	}

	entries, err := handler.reader.Recent(request.Context(), limit)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, entries)
}
