// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package reader_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mangashelf/internal/library"
	"github.com/taibuivan/mangashelf/internal/reader"
)

type recordedView struct {
	series, chapter, viewer string
}

type fakeViews struct {
	mu    sync.Mutex
	views []recordedView
}

func (views *fakeViews) RecordView(_ context.Context, seriesID, chapter, viewerID string) (bool, error) {
	views.mu.Lock()
	defer views.mu.Unlock()
	views.views = append(views.views, recordedView{seriesID, chapter, viewerID})
	return true, nil
}

/*
TestHandler_GetPages verifies the pages endpoint resolves and records a view.
*/
func TestHandler_GetPages(t *testing.T) {
	catalog := library.NewCatalog(nil)
	catalog.Replace(library.Manifest{liveSeries("1", "2")}, false)

	prober := newFakeProber("https://site.test/content/foo/1/01.webp")
	views := &fakeViews{}
	handler := reader.NewHandler(reader.NewResolver(prober, layout, nil), catalog, views)

	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	t.Run("Resolves", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/series/foo/chapters/1/pages", nil)
		request.Header.Set("X-Viewer-ID", "reader-1")
		recorder := httptest.NewRecorder()

		router.ServeHTTP(recorder, request)
		require.Equal(t, http.StatusOK, recorder.Code)

		var body struct {
			Data reader.Chapter `json:"data"`
		}
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
		assert.Len(t, body.Data.Pages, 1)
		assert.Equal(t, "2", body.Data.Next)

		require.Len(t, views.views, 1)
		assert.Equal(t, recordedView{"foo", "1", "reader-1"}, views.views[0])
	})

	t.Run("UnknownSeries", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/series/bar/chapters/1/pages", nil))
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})

	t.Run("UnknownChapter", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/series/foo/chapters/9/pages", nil))
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})
}
