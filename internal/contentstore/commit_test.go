// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package contentstore_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mangashelf/internal/contentstore"
	"github.com/taibuivan/mangashelf/internal/contentstore/storetest"
	"github.com/taibuivan/mangashelf/internal/platform/apperr"
)

/*
TestAtomicCommit_Success verifies every item lands in one new revision on top of the base.
*/
func TestAtomicCommit_Success(t *testing.T) {
	server := storetest.New(t)
	server.Seed(map[string]string{"manga.json": "[]"})
	client := newClient(server)
	ctx := context.Background()

	blob, err := client.CreateBlob(ctx, []byte{0x52, 0x49, 0x46, 0x46})
	require.NoError(t, err)

	before := server.Head()
	result, err := client.AtomicCommit(ctx, "Upload foo/1", []contentstore.TreeItem{
		contentstore.BlobItem("content/foo/1/01.webp", blob),
		contentstore.TextItem("manga.json", `[{"id":"foo"}]`),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, before, result.Parent)
	assert.Equal(t, result.Revision, server.Head())

	files := server.Files()
	assert.Equal(t, "RIFF", files["content/foo/1/01.webp"])
	assert.Equal(t, `[{"id":"foo"}]`, files["manga.json"])
	assert.Equal(t, []string{"Upload foo/1", "seed", "initial"}, server.History())
}

/*
TestAtomicCommit_RebasesAfterConcurrentMove verifies a conflicting ref move is
retried on top of the concurrent writer's revision.
*/
func TestAtomicCommit_RebasesAfterConcurrentMove(t *testing.T) {
	server := storetest.New(t)
	server.Seed(map[string]string{"manga.json": "[]"})
	server.BeforeRefUpdate = func(call int) {
		if call == 1 {
			server.MoveHead(map[string]string{"content/bar/1/01.webp": "other"})
		}
	}
	client := newClient(server)

	var bases []string
	result, err := client.AtomicCommit(context.Background(), "Upload foo/1",
		[]contentstore.TreeItem{contentstore.TextItem("content/foo/1/01.webp", "mine")},
		contentstore.WithRebase(func(_ context.Context, base string) ([]contentstore.TreeItem, error) {
			bases = append(bases, base)
			return []contentstore.TreeItem{contentstore.TextItem("manga.json", "rebased")}, nil
		}),
	)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Attempts)
	require.Len(t, bases, 2)
	assert.NotEqual(t, bases[0], bases[1])

	files := server.Files()
	assert.Equal(t, "mine", files["content/foo/1/01.webp"])
	assert.Equal(t, "other", files["content/bar/1/01.webp"])
	assert.Equal(t, "rebased", files["manga.json"])
}

/*
TestAtomicCommit_RetriesExhausted verifies five conflicts leave the ref unchanged.
*/
func TestAtomicCommit_RetriesExhausted(t *testing.T) {
	server := storetest.New(t)
	server.Seed(map[string]string{"manga.json": "[]"})
	server.Fail(storetest.OpUpdateRef, http.StatusUnprocessableEntity, 5)

	var waits []int
	client := contentstore.NewClient(server.Config(), contentstore.WithBackoff(func(attempt int) time.Duration {
		waits = append(waits, attempt)
		return 0
	}))

	before := server.Head()
	_, err := client.AtomicCommit(context.Background(), "Upload", []contentstore.TreeItem{
		contentstore.TextItem("content/foo/1/01.webp", "x"),
	})

	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeRetriesExhausted))
	assert.True(t, apperr.HasCode(err, apperr.CodeConflict), "last failure is wrapped")
	assert.Equal(t, before, server.Head())
	assert.Equal(t, 5, server.Calls(storetest.OpUpdateRef))
	assert.Equal(t, []int{1, 2, 3, 4}, waits, "no pause after the final attempt")

	_, exists := server.File("content/foo/1/01.webp")
	assert.False(t, exists)
}

/*
TestAtomicCommit_StepFailureRestarts verifies a failure in any step restarts from
the latest revision.
*/
func TestAtomicCommit_StepFailureRestarts(t *testing.T) {
	tests := []struct {
		name string
		op   string
	}{
		{"GetRef", storetest.OpGetRef},
		{"GetCommit", storetest.OpGetCommit},
		{"CreateTree", storetest.OpCreateTree},
		{"CreateCommit", storetest.OpCreateCommit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := storetest.New(t)
			server.Fail(tt.op, http.StatusInternalServerError, 1)
			client := newClient(server)

			result, err := client.AtomicCommit(context.Background(), "msg", []contentstore.TreeItem{
				contentstore.TextItem("a.txt", "a"),
			})
			require.NoError(t, err)
			assert.Equal(t, 2, result.Attempts)
			assert.Equal(t, 2, server.Calls(storetest.OpGetRef))
		})
	}
}

/*
TestAtomicCommit_UnauthorizedNotRetried verifies bad credentials abort immediately.
*/
func TestAtomicCommit_UnauthorizedNotRetried(t *testing.T) {
	server := storetest.New(t)
	server.Fail(storetest.OpGetRef, http.StatusUnauthorized, 5)
	client := newClient(server)

	_, err := client.AtomicCommit(context.Background(), "msg", []contentstore.TreeItem{
		contentstore.TextItem("a.txt", "a"),
	})

	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))
	assert.Equal(t, 1, server.Calls(storetest.OpGetRef))
}

/*
TestAtomicCommit_SecondaryRateLimitRetried verifies a throttled 403 is retried
rather than treated as bad credentials.
*/
func TestAtomicCommit_SecondaryRateLimitRetried(t *testing.T) {
	server := storetest.New(t)
	server.Seed(map[string]string{"manga.json": "[]"})
	server.Throttle(storetest.OpUpdateRef, 1)
	client := newClient(server)

	result, err := client.AtomicCommit(context.Background(), "msg", []contentstore.TreeItem{
		contentstore.TextItem("a.txt", "a"),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, result.Revision, server.Head())
	content, ok := server.File("a.txt")
	assert.True(t, ok)
	assert.Equal(t, "a", content)
}

/*
TestAtomicCommit_Cancelled verifies a cancelled context stops the retry loop.
*/
func TestAtomicCommit_Cancelled(t *testing.T) {
	server := storetest.New(t)
	server.Fail(storetest.OpUpdateRef, http.StatusConflict, 5)
	client := contentstore.NewClient(server.Config(), contentstore.WithBackoff(func(int) time.Duration { return time.Hour }))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.AtomicCommit(ctx, "msg", []contentstore.TreeItem{contentstore.TextItem("a.txt", "a")})
	require.Error(t, err)
	assert.Equal(t, 1, server.Calls(storetest.OpUpdateRef))
}
