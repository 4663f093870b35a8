// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/mangashelf/internal/platform/apperr"
	"github.com/taibuivan/mangashelf/internal/platform/constants"
	"github.com/taibuivan/mangashelf/internal/platform/ctxutil"
	"github.com/taibuivan/mangashelf/internal/platform/sec"
	"github.com/taibuivan/mangashelf/internal/platform/validate"
)

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - request: *http.Request
  - target: interface{} (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target interface{}) error {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
Param retrieves a named URL parameter from the request.
*/
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
Query retrieves a trimmed query-string value.
*/
func Query(request *http.Request, name string) string {
	return strings.TrimSpace(request.URL.Query().Get(name))
}

/*
ViewerID identifies the anonymous reader behind a request.

Description: Uses the X-Viewer-ID header set by the reader frontend and
falls back to the client IP.
*/
func ViewerID(request *http.Request, clientIP string) string {
	if id := strings.TrimSpace(request.Header.Get(constants.HeaderViewerID)); id != "" {
		return id
	}
	return clientIP
}

// UploadedFile is one file read from a multipart form.
type UploadedFile struct {
	Name string
	Data []byte
}

/*
Files reads every file under field from a parsed multipart form, in order.

Returns:
  - []UploadedFile: File names and contents
  - error: apperr.ValidationError when the form is malformed
*/
func Files(request *http.Request, field string, maxBytes int64) ([]UploadedFile, error) {
	if err := request.ParseMultipartForm(maxBytes); err != nil {
		return nil, apperr.ValidationError("Invalid multipart form")
	}

	headers := request.MultipartForm.File[field]
	files := make([]UploadedFile, 0, len(headers))

	for _, header := range headers {
		data, err := readPart(header)
		if err != nil {
			return nil, apperr.ValidationError("Unreadable file: " + header.Filename)
		}
		files = append(files, UploadedFile{Name: header.Filename, Data: data})
	}

	return files, nil
}

func readPart(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

/*
Claims extracts the authenticated user claims from the request context.

Returns nil if the request is not authenticated.
*/
func Claims(request *http.Request) *sec.AuthClaims {
	return ctxutil.GetAuthUser(request.Context())
}

/*
RequiredClaims ensures the request is authenticated and returns the user claims.

Returns:
  - *sec.AuthClaims: The authenticated user claims
  - error: apperr.Unauthorized if the request is not authenticated
*/
func RequiredClaims(request *http.Request) (*sec.AuthClaims, error) {

	// Get user claims
	claims := ctxutil.GetAuthUser(request.Context())

	// If the user is not authenticated, return an error
	if claims == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}

	return claims, nil
}
