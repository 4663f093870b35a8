// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package audit_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mangashelf/internal/audit"
	"github.com/taibuivan/mangashelf/internal/platform/ctxutil"
	"github.com/taibuivan/mangashelf/internal/platform/sec"
)

type failingRecorder struct{}

func (failingRecorder) Record(context.Context, audit.Entry) error {
	return errors.New("pool closed")
}

/*
TestMemoryStore verifies newest-first listing and the capacity bound.
*/
func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := audit.NewMemoryStore(3)

	for _, id := range []string{"1", "2", "3", "4"} {
		require.NoError(t, store.Record(ctx, audit.NewEntry("admin", "delete_chapter", audit.EntityChapter, "foo/"+id)))
	}

	recent, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "foo/4", recent[0].EntityID)
	assert.Equal(t, "foo/2", recent[2].EntityID)

	recent, _ = store.Recent(ctx, 1)
	assert.Len(t, recent, 1)
}

/*
TestTee verifies every recorder receives the entry and failures are reported.
*/
func TestTee(t *testing.T) {
	store := audit.NewMemoryStore(10)
	recorder := audit.Tee(failingRecorder{}, store)

	err := recorder.Record(context.Background(), audit.NewEntry("admin", "deploy", audit.EntityJob, "deploy.yml"))
	assert.EqualError(t, err, "pool closed")

	recent, _ := store.Recent(context.Background(), 10)
	assert.Len(t, recent, 1)
}

/*
TestHandler_ListRecent verifies the role gate and the limit parameter.
*/
func TestHandler_ListRecent(t *testing.T) {
	store := audit.NewMemoryStore(10)
	for range 3 {
		require.NoError(t, store.Record(context.Background(), audit.NewEntry("admin", "deploy", audit.EntityJob, "deploy.yml")))
	}

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if role := request.Header.Get("X-Test-Role"); role != "" {
				claims := &sec.AuthClaims{UserID: "u", Role: role}
				request = request.WithContext(ctxutil.WithAuthUser(request.Context(), claims))
			}
			next.ServeHTTP(writer, request)
		})
	})
	audit.NewHandler(store).RegisterRoutes(router)

	tests := []struct {
		name   string
		role   string
		query  string
		status int
		count  int
	}{
		{"Anonymous", "", "", http.StatusUnauthorized, 0},
		{"Uploader", string(sec.RoleUploader), "", http.StatusForbidden, 0},
		{"Default", string(sec.RoleAdmin), "", http.StatusOK, 3},
		{"Limited", string(sec.RoleAdmin), "?limit=2", http.StatusOK, 2},
		{"BadLimit", string(sec.RoleAdmin), "?limit=abc", http.StatusBadRequest, 0},
		{"OutOfRange", string(sec.RoleAdmin), "?limit=0", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/admin/audit"+tt.query, nil)
			if tt.role != "" {
				request.Header.Set("X-Test-Role", tt.role)
			}
			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, request)

			require.Equal(t, tt.status, recorder.Code)
			if tt.status != http.StatusOK {
				return
			}

			var body struct {
				Data []audit.Entry `json:"data"`
			}
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
			assert.Len(t, body.Data, tt.count)
		})
	}
}
