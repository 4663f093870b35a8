// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package admin_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mangashelf/internal/admin"
	"github.com/taibuivan/mangashelf/internal/contentstore"
	"github.com/taibuivan/mangashelf/internal/contentstore/storetest"
	"github.com/taibuivan/mangashelf/internal/imaging"
	"github.com/taibuivan/mangashelf/internal/library"
)

// fakeTransformer prefixes outputs with "webp:" and splits inputs starting
// with "tall" into two parts. An input of "bad" fails.
type fakeTransformer struct {
	purposes []imaging.Purpose
}

func (transformer *fakeTransformer) Transform(data []byte, purpose imaging.Purpose) ([]imaging.Output, error) {
	transformer.purposes = append(transformer.purposes, purpose)

	input := string(data)
	switch {
	case input == "bad":
		return nil, errors.New("image: unknown format")
	case strings.HasPrefix(input, "tall"):
		return []imaging.Output{
			{Data: []byte("webp:" + input + "1"), Suffix: imaging.PartSuffix(1)},
			{Data: []byte("webp:" + input + "2"), Suffix: imaging.PartSuffix(2)},
		}, nil
	default:
		return []imaging.Output{{Data: []byte("webp:" + input)}}, nil
	}
}

const seededManifest = `[
  {"id": "foo", "title": "Foo", "cover": "", "chapters": ["1", "2"],
   "chapter_roots": {"1": {"url": "https://cold.test/foo/1", "mode": "count", "data": 3}}},
  {"id": "old", "title": "Old", "cover": "", "chapters": ["1"],
   "chapter_roots": {"1": "https://cold.test/old/1"}}
]`

func newService(t *testing.T, server *storetest.Server) (*admin.Service, *fakeTransformer) {
	t.Helper()

	client := contentstore.NewClient(server.Config(), contentstore.WithBackoff(func(int) time.Duration { return 0 }))
	transformer := &fakeTransformer{}
	service := admin.NewService(client, transformer, admin.NewState(), server.Config(),
		admin.WithUploadRetry(3, 0),
		admin.WithDeployPolling(0, 0, 10),
	)
	return service, transformer
}

func manifestAtHead(t *testing.T, server *storetest.Server) library.Manifest {
	t.Helper()

	raw, ok := server.File("manga.json")
	require.True(t, ok)
	manifest, err := library.Parse([]byte(raw))
	require.NoError(t, err)
	return manifest
}

func background() context.Context {
	return context.Background()
}
