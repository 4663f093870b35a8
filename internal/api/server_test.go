// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mangashelf/internal/admin"
	"github.com/taibuivan/mangashelf/internal/api"
	"github.com/taibuivan/mangashelf/internal/audit"
	"github.com/taibuivan/mangashelf/internal/auth"
	"github.com/taibuivan/mangashelf/internal/contentstore"
	"github.com/taibuivan/mangashelf/internal/contentstore/storetest"
	"github.com/taibuivan/mangashelf/internal/imagehost"
	"github.com/taibuivan/mangashelf/internal/imaging"
	"github.com/taibuivan/mangashelf/internal/library"
	"github.com/taibuivan/mangashelf/internal/platform/config"
	"github.com/taibuivan/mangashelf/internal/platform/constants"
	"github.com/taibuivan/mangashelf/internal/platform/sec"
	"github.com/taibuivan/mangashelf/internal/presence"
	"github.com/taibuivan/mangashelf/internal/reader"
)

type absentProber struct{}

func (absentProber) Exists(context.Context, string) bool { return false }

func newTestServer(t *testing.T) (http.Handler, *sec.TokenService) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := storetest.New(t)
	store.Seed(map[string]string{"manga.json": `[{"id":"foo","title":"Foo","chapters":["1"]}]`})

	client := contentstore.NewClient(store.Config(), contentstore.WithBackoff(func(int) time.Duration { return 0 }))
	upstream := library.StoreSource{Store: client, Path: store.Config().ManifestPath}
	catalog := library.NewCatalog(library.NewFetcher([]library.Source{upstream}, &library.MemoryCache{}, logger))
	require.NoError(t, catalog.Refresh(context.Background()))

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tokens := sec.NewTokenServiceFromKeys(key, &key.PublicKey, constants.AuthIssuer)

	service := admin.NewService(client, imaging.NewTransformer(imaging.WebPEncoder{}), admin.NewState(), store.Config())
	trail := audit.NewMemoryStore(constants.AuditMemoryCapacity)
	dispatcher := admin.NewDispatcher(service, audit.Tee(audit.NewLogRecorder(logger), trail), catalog, logger)
	resolver := reader.NewResolver(absentProber{}, reader.Layout{SiteURL: "https://site.test", ContentRoot: "content"}, logger)

	liveness, readiness := api.NewHealthHandlers(nil, logger)
	cfg := &config.Config{ServerPort: "0", Environment: "test"}

	server := api.NewServer(context.Background(), cfg, logger, tokens, api.Handlers{
		Liveness:    liveness,
		Readiness:   readiness,
		Library:     library.NewHandler(catalog, upstream, nil),
		Reader:      reader.NewHandler(resolver, catalog, nil),
		Presence:    presence.NewHandler(presence.NewHub(presence.NoopTracker{})),
		Attachments: imagehost.NewHandler(imagehost.NewClient("http://unused.test", "")),
		Auth:        auth.NewHandler(auth.NewService(auth.NewStaticAccounts("unused", ""), tokens, logger)),
		Admin:       admin.NewHandler(dispatcher),
		Audit:       audit.NewHandler(trail),
	})
	return server.Handler(), tokens
}

/*
TestServer_Routes verifies every route group is mounted and admin routes are
gated.
*/
func TestServer_Routes(t *testing.T) {
	handler, tokens := newTestServer(t)

	adminToken, err := tokens.GenerateAccessToken("admin", "admin", string(sec.RoleAdmin), time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{"Health", http.MethodGet, "/health", "", http.StatusOK},
		{"Ready", http.MethodGet, "/ready", "", http.StatusOK},
		{"Proxy", http.MethodGet, "/api/library", "", http.StatusOK},
		{"Series", http.MethodGet, "/api/v1/series", "", http.StatusOK},
		{"UnknownSeries", http.MethodGet, "/api/v1/series/nope", "", http.StatusNotFound},
		{"Presence", http.MethodGet, "/api/v1/presence", "", http.StatusOK},
		{"AttachmentsUnconfigured", http.MethodPost, "/api/v1/attachments", "", http.StatusBadRequest},
		{"AdminAnonymous", http.MethodGet, "/api/v1/admin/dashboard", "", http.StatusUnauthorized},
		{"AdminBadToken", http.MethodGet, "/api/v1/admin/dashboard", "garbage", http.StatusUnauthorized},
		{"AdminDashboard", http.MethodGet, "/api/v1/admin/dashboard", adminToken, http.StatusOK},
		{"AuditTrail", http.MethodGet, "/api/v1/admin/audit", adminToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				request.Header.Set("Authorization", "Bearer "+tt.token)
			}
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)

			assert.Equal(t, tt.status, recorder.Code, recorder.Body.String())
		})
	}
}

/*
TestReadiness verifies required checks fail readiness and optional ones do not.
*/
func TestReadiness(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	down := func() error { return errors.New("connection refused") }
	up := func() error { return nil }

	tests := []struct {
		name   string
		checks []api.Check
		status int
		body   string
	}{
		{"AllUp", []api.Check{{Name: "store", Run: up}}, http.StatusOK, `"status":"ready"`},
		{"OptionalDown", []api.Check{{Name: "store", Run: up}, {Name: "redis", Run: down, Optional: true}}, http.StatusOK, `"error":"connection refused"`},
		{"RequiredDown", []api.Check{{Name: "store", Run: down}}, http.StatusServiceUnavailable, `"status":"degraded"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, readiness := api.NewHealthHandlers(tt.checks, logger)
			recorder := httptest.NewRecorder()
			readiness(recorder, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assert.Equal(t, tt.status, recorder.Code)
			assert.Contains(t, recorder.Body.String(), tt.body)
		})
	}
}
