// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package storetest runs an in-memory stand-in for the repository API used by
the content store client. It keeps real blob, tree and revision objects so
tests can assert on the branch head, the exact file set, and how many calls
each operation received.

Usage:

	server := storetest.New(t)
	server.Seed(map[string]string{"manga.json": "[]"})
	client := contentstore.NewClient(server.Config())
*/
package storetest

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/mangashelf/internal/contentstore"
	"github.com/taibuivan/mangashelf/internal/platform/config"
)

// Token is the only bearer token the server accepts.
const Token = "test-token"

// Branch is the branch the server serves.
const Branch = "main"

// RawBaseURL prefixes the download URL of every listed file.
const RawBaseURL = "https://raw.test/"

// Operation names used for call counting and fault injection.
const (
	OpCreateBlob     = "create_blob"
	OpGetRef         = "get_ref"
	OpGetCommit      = "get_commit"
	OpCreateTree     = "create_tree"
	OpCreateCommit   = "create_commit"
	OpUpdateRef      = "update_ref"
	OpReadContents   = "read_contents"
	OpPutContents    = "put_contents"
	OpDeleteContents = "delete_contents"
	OpDispatch       = "dispatch"
	OpListRuns       = "list_runs"
)

type revision struct {
	tree    string
	parents []string
	message string
}

type fault struct {
	status    int
	remaining int
	body      map[string]string
}

// secondaryLimitDocs is the documentation link GitHub attaches to secondary rate limit answers.
const secondaryLimitDocs = "https://docs.github.com/rest/overview/rate-limits-for-the-rest-api#about-secondary-rate-limits"

// Dispatch records one workflow dispatch.
type Dispatch struct {
	Workflow string
	Ref      string
	Inputs   map[string]string
}

// # Server Definition

// Server is a fake repository API backed by httptest.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	blobs      map[string][]byte
	trees      map[string]map[string]string
	revisions  map[string]revision
	head       string
	sequence   int
	calls      map[string]int
	faults     map[string]*fault
	dispatches []Dispatch

	// BeforeRefUpdate runs before every ref update with the 1-based update count.
	BeforeRefUpdate func(call int)

	// Runs answers workflow run listings with the 1-based listing count.
	Runs func(call int) []contentstore.JobRun
}

// New starts a server with an empty initial revision and closes it with the test.
func New(t testing.TB) *Server {
	t.Helper()

	server := &Server{
		blobs:     map[string][]byte{},
		trees:     map[string]map[string]string{},
		revisions: map[string]revision{},
		calls:     map[string]int{},
		faults:    map[string]*fault{},
	}

	emptyTree := server.storeTree(map[string]string{})
	server.head = server.storeRevision(revision{tree: emptyTree, message: "initial"})

	server.Server = httptest.NewServer(server.routes())
	t.Cleanup(server.Close)

	return server
}

// Config returns a store configuration pointing at the server.
func (server *Server) Config() config.StoreConfig {
	return config.StoreConfig{
		Owner:              "shelf",
		Repo:               "library",
		Token:              Token,
		Branch:             Branch,
		APIURL:             server.URL,
		ManifestPath:       "manga.json",
		PendingDeletesPath: "pending_deletes.json",
		ContentRoot:        "content",
	}
}

// # Test Helpers

// Seed commits files on top of the current head.
func (server *Server) Seed(files map[string]string) string {
	server.mu.Lock()
	defer server.mu.Unlock()
	return server.commitFiles(toBytes(files), "seed")
}

// SeedBytes commits binary files on top of the current head.
func (server *Server) SeedBytes(files map[string][]byte) string {
	server.mu.Lock()
	defer server.mu.Unlock()
	return server.commitFiles(files, "seed")
}

// MoveHead simulates a concurrent writer by committing files on top of head.
func (server *Server) MoveHead(files map[string]string) string {
	server.mu.Lock()
	defer server.mu.Unlock()
	return server.commitFiles(toBytes(files), "concurrent writer")
}

// Head returns the revision the branch points to.
func (server *Server) Head() string {
	server.mu.Lock()
	defer server.mu.Unlock()
	return server.head
}

// Files returns every path at head with its content.
func (server *Server) Files() map[string]string {
	server.mu.Lock()
	defer server.mu.Unlock()

	files := map[string]string{}
	for path, blob := range server.trees[server.revisions[server.head].tree] {
		files[path] = string(server.blobs[blob])
	}
	return files
}

// File returns the content at path on head and whether it exists.
func (server *Server) File(path string) (string, bool) {
	server.mu.Lock()
	defer server.mu.Unlock()

	blob, ok := server.trees[server.revisions[server.head].tree][path]
	if !ok {
		return "", false
	}
	return string(server.blobs[blob]), true
}

// History returns the revision messages from head back to the initial revision.
func (server *Server) History() []string {
	server.mu.Lock()
	defer server.mu.Unlock()

	var messages []string
	for id := server.head; id != ""; {
		rev := server.revisions[id]
		messages = append(messages, rev.message)
		if len(rev.parents) == 0 {
			break
		}
		id = rev.parents[0]
	}
	return messages
}

// Calls returns how many requests an operation received.
func (server *Server) Calls(op string) int {
	server.mu.Lock()
	defer server.mu.Unlock()
	return server.calls[op]
}

// Fail makes the next times requests to op answer with status.
func (server *Server) Fail(op string, status, times int) {
	server.mu.Lock()
	defer server.mu.Unlock()
	server.faults[op] = &fault{status: status, remaining: times}
}

// Throttle makes the next times requests to op answer with a 403 secondary
// rate limit, the way GitHub throttles bursts of content writes.
func (server *Server) Throttle(op string, times int) {
	server.mu.Lock()
	defer server.mu.Unlock()
	server.faults[op] = &fault{
		status:    http.StatusForbidden,
		remaining: times,
		body: map[string]string{
			"message":           "You have exceeded a secondary rate limit. Please wait a few minutes before you try again.",
			"documentation_url": secondaryLimitDocs,
		},
	}
}

// Dispatches returns every recorded workflow dispatch.
func (server *Server) Dispatches() []Dispatch {
	server.mu.Lock()
	defer server.mu.Unlock()
	return append([]Dispatch(nil), server.dispatches...)
}

// # Routing

func (server *Server) routes() http.Handler {
	router := chi.NewRouter()

	router.Route("/repos/{owner}/{repo}", func(r chi.Router) {
		r.Post("/git/blobs", server.handle(OpCreateBlob, server.createBlob))
		r.Get("/git/ref/heads/{branch}", server.handle(OpGetRef, server.getRef))
		r.Get("/git/commits/{sha}", server.handle(OpGetCommit, server.getCommit))
		r.Post("/git/trees", server.handle(OpCreateTree, server.createTree))
		r.Post("/git/commits", server.handle(OpCreateCommit, server.createCommit))
		r.Patch("/git/refs/heads/{branch}", server.handle(OpUpdateRef, server.updateRef))

		r.Get("/contents/*", server.handle(OpReadContents, server.readContents))
		r.Put("/contents/*", server.handle(OpPutContents, server.putContents))
		r.Delete("/contents/*", server.handle(OpDeleteContents, server.deleteContents))

		r.Post("/actions/workflows/{workflow}/dispatches", server.handle(OpDispatch, server.dispatch))
		r.Get("/actions/runs", server.handle(OpListRuns, server.listRuns))
	})

	return router
}

// handle wraps a handler with authentication, call counting and fault injection.
// Handlers run with the server lock held.
func (server *Server) handle(op string, next func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		if request.Header.Get("Authorization") != "Bearer "+Token {
			writeMessage(writer, http.StatusUnauthorized, "Bad credentials")
			return
		}

		server.mu.Lock()
		server.calls[op]++
		call := server.calls[op]

		if f := server.faults[op]; f != nil && f.remaining > 0 {
			f.remaining--
			server.mu.Unlock()
			if f.body != nil {
				writeJSON(writer, f.status, f.body)
				return
			}
			writeMessage(writer, f.status, "injected failure")
			return
		}

		if op == OpUpdateRef && server.BeforeRefUpdate != nil {
			hook := server.BeforeRefUpdate
			server.mu.Unlock()
			hook(call)
			server.mu.Lock()
		}

		if op == OpListRuns && server.Runs != nil {
			hook := server.Runs
			server.mu.Unlock()
			runs := hook(call)
			writeJSON(writer, http.StatusOK, map[string]any{"total_count": len(runs), "workflow_runs": runs})
			return
		}

		defer server.mu.Unlock()
		next(writer, request)
	}
}

// # Git Data Handlers

func (server *Server) createBlob(writer http.ResponseWriter, request *http.Request) {
	var body struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
		writeMessage(writer, http.StatusBadRequest, "Problems parsing JSON")
		return
	}

	content := []byte(body.Content)
	if body.Encoding == string(contentstore.EncodingBase64) {
		decoded, err := base64.StdEncoding.DecodeString(body.Content)
		if err != nil {
			writeMessage(writer, http.StatusUnprocessableEntity, "Invalid base64")
			return
		}
		content = decoded
	}

	writeJSON(writer, http.StatusCreated, map[string]string{"sha": server.storeBlob(content)})
}

func (server *Server) getRef(writer http.ResponseWriter, request *http.Request) {
	if chi.URLParam(request, "branch") != Branch {
		writeMessage(writer, http.StatusNotFound, "Not Found")
		return
	}
	writeJSON(writer, http.StatusOK, map[string]any{
		"ref":    "refs/heads/" + Branch,
		"object": map[string]string{"sha": server.head, "type": "commit"},
	})
}

func (server *Server) getCommit(writer http.ResponseWriter, request *http.Request) {
	rev, ok := server.revisions[chi.URLParam(request, "sha")]
	if !ok {
		writeMessage(writer, http.StatusNotFound, "Not Found")
		return
	}
	writeJSON(writer, http.StatusOK, map[string]any{
		"sha":     chi.URLParam(request, "sha"),
		"message": rev.message,
		"tree":    map[string]string{"sha": rev.tree},
	})
}

func (server *Server) createTree(writer http.ResponseWriter, request *http.Request) {
	var body struct {
		BaseTree string                  `json:"base_tree"`
		Tree     []contentstore.TreeItem `json:"tree"`
	}
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
		writeMessage(writer, http.StatusBadRequest, "Problems parsing JSON")
		return
	}

	base, ok := server.trees[body.BaseTree]
	if !ok {
		writeMessage(writer, http.StatusUnprocessableEntity, "Invalid base_tree")
		return
	}

	entries := make(map[string]string, len(base)+len(body.Tree))
	for path, blob := range base {
		entries[path] = blob
	}

	for _, item := range body.Tree {
		switch {
		case item.SHA != "":
			if _, ok := server.blobs[item.SHA]; !ok {
				writeMessage(writer, http.StatusUnprocessableEntity, "Invalid sha for "+item.Path)
				return
			}
			entries[item.Path] = item.SHA
		default:
			entries[item.Path] = server.storeBlob([]byte(item.Content))
		}
	}

	writeJSON(writer, http.StatusCreated, map[string]string{"sha": server.storeTree(entries)})
}

func (server *Server) createCommit(writer http.ResponseWriter, request *http.Request) {
	var body struct {
		Message string   `json:"message"`
		Tree    string   `json:"tree"`
		Parents []string `json:"parents"`
	}
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
		writeMessage(writer, http.StatusBadRequest, "Problems parsing JSON")
		return
	}

	if _, ok := server.trees[body.Tree]; !ok {
		writeMessage(writer, http.StatusUnprocessableEntity, "Tree not found")
		return
	}
	for _, parent := range body.Parents {
		if _, ok := server.revisions[parent]; !ok {
			writeMessage(writer, http.StatusUnprocessableEntity, "Parent not found")
			return
		}
	}

	id := server.storeRevision(revision{tree: body.Tree, parents: body.Parents, message: body.Message})
	writeJSON(writer, http.StatusCreated, map[string]string{"sha": id})
}

func (server *Server) updateRef(writer http.ResponseWriter, request *http.Request) {
	var body struct {
		SHA   string `json:"sha"`
		Force bool   `json:"force"`
	}
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
		writeMessage(writer, http.StatusBadRequest, "Problems parsing JSON")
		return
	}

	rev, ok := server.revisions[body.SHA]
	if !ok {
		writeMessage(writer, http.StatusUnprocessableEntity, "Object does not exist")
		return
	}

	if !body.Force && (len(rev.parents) == 0 || rev.parents[0] != server.head) {
		writeMessage(writer, http.StatusUnprocessableEntity, "Update is not a fast forward")
		return
	}

	server.head = body.SHA
	writeJSON(writer, http.StatusOK, map[string]any{"object": map[string]string{"sha": body.SHA}})
}

// # Contents Handlers

func (server *Server) readContents(writer http.ResponseWriter, request *http.Request) {
	path, err := contentPath(request)
	if err != nil {
		writeMessage(writer, http.StatusBadRequest, "Bad path")
		return
	}

	tree, ok := server.treeAt(request.URL.Query().Get("ref"))
	if !ok {
		writeMessage(writer, http.StatusNotFound, "No commit found for the ref")
		return
	}

	if blob, ok := tree[path]; ok {
		content := server.blobs[blob]
		if request.Header.Get("Accept") == "application/vnd.github.raw" {
			writer.Header().Set("Content-Type", "application/octet-stream")
			writer.WriteHeader(http.StatusOK)
			_, _ = writer.Write(content)
			return
		}
		writeJSON(writer, http.StatusOK, map[string]any{
			"name":     baseName(path),
			"path":     path,
			"sha":      blob,
			"type":     contentstore.EntryFile,
			"size":     len(content),
			"encoding": "base64",
			"content":  wrap(base64.StdEncoding.EncodeToString(content)),
		})
		return
	}

	listing := server.listDir(tree, path)
	if len(listing) == 0 {
		writeMessage(writer, http.StatusNotFound, "Not Found")
		return
	}
	writeJSON(writer, http.StatusOK, listing)
}

func (server *Server) putContents(writer http.ResponseWriter, request *http.Request) {
	path, err := contentPath(request)
	if err != nil {
		writeMessage(writer, http.StatusBadRequest, "Bad path")
		return
	}

	var body struct {
		Message string `json:"message"`
		Content string `json:"content"`
		SHA     string `json:"sha"`
	}
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
		writeMessage(writer, http.StatusBadRequest, "Problems parsing JSON")
		return
	}

	content, err := base64.StdEncoding.DecodeString(body.Content)
	if err != nil {
		writeMessage(writer, http.StatusUnprocessableEntity, "content is not valid Base64")
		return
	}

	current, exists := server.trees[server.revisions[server.head].tree][path]
	switch {
	case exists && body.SHA == "":
		writeMessage(writer, http.StatusUnprocessableEntity, "\"sha\" wasn't supplied.")
		return
	case exists && body.SHA != current:
		writeMessage(writer, http.StatusConflict, fmt.Sprintf("%s does not match %s", path, body.SHA))
		return
	case !exists && body.SHA != "":
		writeMessage(writer, http.StatusConflict, fmt.Sprintf("%s does not exist", path))
		return
	}

	id := server.commitFiles(map[string][]byte{path: content}, body.Message)
	blob := server.trees[server.revisions[id].tree][path]

	writeJSON(writer, http.StatusOK, map[string]any{
		"content": map[string]any{"name": baseName(path), "path": path, "sha": blob, "type": contentstore.EntryFile, "size": len(content)},
		"commit":  map[string]string{"sha": id},
	})
}

func (server *Server) deleteContents(writer http.ResponseWriter, request *http.Request) {
	path, err := contentPath(request)
	if err != nil {
		writeMessage(writer, http.StatusBadRequest, "Bad path")
		return
	}

	var body struct {
		Message string `json:"message"`
		SHA     string `json:"sha"`
	}
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
		writeMessage(writer, http.StatusBadRequest, "Problems parsing JSON")
		return
	}

	tree := server.trees[server.revisions[server.head].tree]
	current, exists := tree[path]
	if !exists {
		writeMessage(writer, http.StatusNotFound, "Not Found")
		return
	}
	if body.SHA != current {
		writeMessage(writer, http.StatusConflict, fmt.Sprintf("%s does not match %s", path, body.SHA))
		return
	}

	entries := make(map[string]string, len(tree))
	for p, blob := range tree {
		if p != path {
			entries[p] = blob
		}
	}

	id := server.storeRevision(revision{tree: server.storeTree(entries), parents: []string{server.head}, message: body.Message})
	server.head = id

	writeJSON(writer, http.StatusOK, map[string]any{"commit": map[string]string{"sha": id}})
}

// # Actions Handlers

func (server *Server) dispatch(writer http.ResponseWriter, request *http.Request) {
	var body struct {
		Ref    string            `json:"ref"`
		Inputs map[string]string `json:"inputs"`
	}
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
		writeMessage(writer, http.StatusBadRequest, "Problems parsing JSON")
		return
	}

	server.dispatches = append(server.dispatches, Dispatch{
		Workflow: chi.URLParam(request, "workflow"),
		Ref:      body.Ref,
		Inputs:   body.Inputs,
	})
	writer.WriteHeader(http.StatusNoContent)
}

func (server *Server) listRuns(writer http.ResponseWriter, _ *http.Request) {
	writeJSON(writer, http.StatusOK, map[string]any{"total_count": 0, "workflow_runs": []contentstore.JobRun{}})
}

// # Object Storage

func (server *Server) commitFiles(files map[string][]byte, message string) string {
	base := server.trees[server.revisions[server.head].tree]

	entries := make(map[string]string, len(base)+len(files))
	for path, blob := range base {
		entries[path] = blob
	}
	for path, content := range files {
		entries[path] = server.storeBlob(content)
	}

	id := server.storeRevision(revision{tree: server.storeTree(entries), parents: []string{server.head}, message: message})
	server.head = id
	return id
}

func (server *Server) storeBlob(content []byte) string {
	id := hash("blob", string(content))
	server.blobs[id] = append([]byte(nil), content...)
	return id
}

func (server *Server) storeTree(entries map[string]string) string {
	paths := make([]string, 0, len(entries))
	for path := range entries {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var builder strings.Builder
	for _, path := range paths {
		builder.WriteString(path + "\x00" + entries[path] + "\n")
	}

	id := hash("tree", builder.String())
	server.trees[id] = entries
	return id
}

func (server *Server) storeRevision(rev revision) string {
	server.sequence++
	id := hash("commit", fmt.Sprintf("%d\x00%s\x00%s\x00%s", server.sequence, rev.tree, strings.Join(rev.parents, ","), rev.message))
	server.revisions[id] = rev
	return id
}

func (server *Server) treeAt(ref string) (map[string]string, bool) {
	if ref == "" || ref == Branch {
		return server.trees[server.revisions[server.head].tree], true
	}
	rev, ok := server.revisions[ref]
	if !ok {
		return nil, false
	}
	return server.trees[rev.tree], true
}

func (server *Server) listDir(tree map[string]string, dir string) []contentstore.Entry {
	prefix := strings.Trim(dir, "/") + "/"
	seen := map[string]bool{}
	var listing []contentstore.Entry

	for path, blob := range tree {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		rest := strings.TrimPrefix(path, prefix)
		name, _, nested := strings.Cut(rest, "/")
		if seen[name] {
			continue
		}
		seen[name] = true

		if nested {
			listing = append(listing, contentstore.Entry{Name: name, Path: prefix + name, Type: contentstore.EntryDir})
			continue
		}
		listing = append(listing, contentstore.Entry{
			Name: name,
			Path: path,
			SHA:         blob,
			Type:        contentstore.EntryFile,
			Size:        int64(len(server.blobs[blob])),
			DownloadURL: RawBaseURL + path,
		})
	}

	sort.Slice(listing, func(i, j int) bool { return listing[i].Name < listing[j].Name })
	return listing
}

// # Helpers

func contentPath(request *http.Request) (string, error) {
	return url.PathUnescape(chi.URLParam(request, "*"))
}

func hash(kind, payload string) string {
	sum := sha1.Sum([]byte(kind + " " + payload))
	return hex.EncodeToString(sum[:])
}

func baseName(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

// wrap inserts newlines every 60 characters the way the contents API does.
func wrap(encoded string) string {
	var builder strings.Builder
	for len(encoded) > 60 {
		builder.WriteString(encoded[:60] + "\n")
		encoded = encoded[60:]
	}
	builder.WriteString(encoded)
	return builder.String()
}

func toBytes(files map[string]string) map[string][]byte {
	out := make(map[string][]byte, len(files))
	for path, content := range files {
		out[path] = []byte(content)
	}
	return out
}

func writeJSON(writer http.ResponseWriter, status int, payload any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(payload)
}

func writeMessage(writer http.ResponseWriter, status int, message string) {
	writeJSON(writer, status, map[string]string{"message": message})
}
