// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package imagehost_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mangashelf/internal/imagehost"
	"github.com/taibuivan/mangashelf/internal/platform/apperr"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

// newHost fakes the image host; reply receives the uploaded bytes.
func newHost(t *testing.T, reply func(data []byte) (int, string)) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "secret", request.URL.Query().Get("key"))

		file, _, err := request.FormFile(imagehost.FieldImage)
		if !assert.NoError(t, err) {
			writer.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)

		status, body := reply(data)
		writer.WriteHeader(status)
		_, _ = writer.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

/*
TestClient_Upload verifies success, host rejection and local validation.
*/
func TestClient_Upload(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		host := newHost(t, func(data []byte) (int, string) {
			assert.Equal(t, pngBytes, data)
			return http.StatusOK, `{"success":true,"data":{"id":"abc","url":"https://i.test/abc.png"}}`
		})

		image, err := imagehost.NewClient(host.URL, "secret").Upload(ctx, "shot.png", pngBytes)
		require.NoError(t, err)
		assert.Equal(t, "abc", image.ID)
		assert.Equal(t, "![Image](https://i.test/abc.png)", image.Markdown())
	})

	t.Run("Rejected", func(t *testing.T) {
		host := newHost(t, func([]byte) (int, string) {
			return http.StatusBadRequest, `{"success":false,"error":{"message":"Invalid API key"}}`
		})

		_, err := imagehost.NewClient(host.URL, "secret").Upload(ctx, "shot.png", pngBytes)
		require.Error(t, err)
		assert.True(t, apperr.HasCode(err, apperr.CodeTransport))
		assert.Equal(t, "Invalid API key", err.Error())
	})

	t.Run("RejectedWithoutMessage", func(t *testing.T) {
		host := newHost(t, func([]byte) (int, string) {
			return http.StatusOK, `{"success":false}`
		})

		_, err := imagehost.NewClient(host.URL, "secret").Upload(ctx, "shot.png", pngBytes)
		require.Error(t, err)
		assert.Equal(t, "Upload failed", err.Error())
	})

	t.Run("NotJSON", func(t *testing.T) {
		host := newHost(t, func([]byte) (int, string) {
			return http.StatusBadGateway, `<html>bad gateway</html>`
		})

		_, err := imagehost.NewClient(host.URL, "secret").Upload(ctx, "shot.png", pngBytes)
		assert.True(t, apperr.HasCode(err, apperr.CodeTransport))
	})

	t.Run("NotAnImage", func(t *testing.T) {
		_, err := imagehost.NewClient("http://unused.test", "secret").Upload(ctx, "notes.txt", []byte("hello"))
		assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
	})

	t.Run("NoKey", func(t *testing.T) {
		_, err := imagehost.NewClient("http://unused.test", "").Upload(ctx, "shot.png", pngBytes)
		assert.True(t, apperr.HasCode(err, apperr.CodeServiceUnavailable))
	})
}

/*
TestHandler_Upload verifies the attachment endpoint relays the first file.
*/
func TestHandler_Upload(t *testing.T) {
	host := newHost(t, func([]byte) (int, string) {
		return http.StatusOK, `{"success":true,"data":{"id":"abc","url":"https://i.test/abc.png"}}`
	})

	router := chi.NewRouter()
	router.Route("/api/v1", imagehost.NewHandler(imagehost.NewClient(host.URL, "secret")).RegisterRoutes)

	t.Run("Created", func(t *testing.T) {
		var body bytes.Buffer
		form := multipart.NewWriter(&body)
		part, err := form.CreateFormFile(imagehost.FieldImage, "shot.png")
		require.NoError(t, err)
		_, _ = part.Write(pngBytes)
		require.NoError(t, form.Close())

		request := httptest.NewRequest(http.MethodPost, "/api/v1/attachments", &body)
		request.Header.Set("Content-Type", form.FormDataContentType())
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)

		require.Equal(t, http.StatusCreated, recorder.Code)

		var response struct {
			Data imagehost.Attachment `json:"data"`
		}
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
		assert.Equal(t, "https://i.test/abc.png", response.Data.URL)
		assert.Equal(t, "![Image](https://i.test/abc.png)", response.Data.Markdown)
	})

	t.Run("Missing", func(t *testing.T) {
		var body bytes.Buffer
		form := multipart.NewWriter(&body)
		require.NoError(t, form.WriteField("note", "x"))
		require.NoError(t, form.Close())

		request := httptest.NewRequest(http.MethodPost, "/api/v1/attachments", &body)
		request.Header.Set("Content-Type", form.FormDataContentType())
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}
