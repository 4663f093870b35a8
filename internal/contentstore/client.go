// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package contentstore is the client for the GitHub repository that stores the
library: page images, covers, the manifest and the pending-deletes queue.

Architecture:

  - Contents API: single-file reads, writes and deletes guarded by blob sha.
  - Git Data API: blobs, trees, commits and the branch ref, composed by
    [Client.AtomicCommit] into an all-or-nothing multi-file commit.
  - Actions API: dispatch and inspection of the maintenance and deploy workflows.

Requests go through go-github. Every operation returns an [*apperr.AppError]
classified as UNAUTHORIZED, NOT_FOUND, CONFLICT or TRANSPORT_ERROR. Nothing in
this package panics.
*/
package contentstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"
	"golang.org/x/time/rate"

	"github.com/taibuivan/mangashelf/internal/platform/apperr"
	"github.com/taibuivan/mangashelf/internal/platform/config"
	"github.com/taibuivan/mangashelf/internal/platform/constants"
)

const acceptRaw = "application/vnd.github.raw"

// # Client Definition

// Client talks to one repository and one branch.
type Client struct {
	github  *github.Client
	owner   string
	repo    string
	branch  string
	limiter *rate.Limiter
	logger  *slog.Logger
	backoff func(attempt int) time.Duration

	httpClient *http.Client
}

// Option customizes a [Client].
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(client *Client) { client.httpClient = httpClient }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(client *Client) { client.logger = logger }
}

// WithBackoff replaces the pause taken before commit attempt n+1 after attempt n failed.
func WithBackoff(backoff func(attempt int) time.Duration) Option {
	return func(client *Client) { client.backoff = backoff }
}

// NewClient builds a client from the store configuration.
func NewClient(cfg config.StoreConfig, opts ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{Timeout: constants.StoreHTTPTimeout},
		owner:      cfg.Owner,
		repo:       cfg.Repo,
		branch:     cfg.Branch,
		logger:     slog.Default(),
		backoff:    exponentialBackoff,
	}

	if cfg.RateRPS > 0 {
		client.limiter = rate.NewLimiter(rate.Limit(cfg.RateRPS), cfg.RateRPS)
	}

	for _, opt := range opts {
		opt(client)
	}

	client.github = github.NewClient(client.httpClient).WithAuthToken(cfg.Token)
	if cfg.APIURL != "" {
		base, err := url.Parse(strings.TrimRight(cfg.APIURL, "/") + "/")
		if err != nil {
			client.logger.Warn("store_api_url_invalid", slog.String("url", cfg.APIURL), slog.String("error", err.Error()))
		} else {
			client.github.BaseURL = base
		}
	}

	return client
}

// Branch returns the branch every ref operation targets.
func (client *Client) Branch() string { return client.branch }

// # Contents API

/*
ReadFile fetches and decodes one file.

Parameters:
  - context: context.Context
  - path: string (Repository-relative path)
  - ref: string (Commit sha or branch; empty reads the default branch head)

Returns:
  - *File: Decoded content and blob sha
  - error: NOT_FOUND when absent, TRANSPORT_ERROR when the path is a directory
*/
func (client *Client) ReadFile(context context.Context, path, ref string) (*File, error) {
	var file *github.RepositoryContent
	err := client.call(context, "read_file", func() (*github.Response, error) {
		var response *github.Response
		var err error
		file, _, response, err = client.github.Repositories.GetContents(context, client.owner, client.repo, path, contentOptions(ref))
		return response, err
	})
	if err != nil {
		return nil, err
	}

	if file == nil {
		return nil, apperr.Transport(fmt.Sprintf("%s is a directory", path), nil)
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, apperr.Transport("Malformed file content", err)
	}

	return &File{Entry: toEntry(file), Content: []byte(content)}, nil
}

/*
ReadRaw fetches the raw bytes of one file without base64 decoding, which
also works for files above the contents API inline size limit.
*/
func (client *Client) ReadRaw(context context.Context, path, ref string) ([]byte, error) {
	target := fmt.Sprintf("repos/%s/%s/contents/%s", client.owner, client.repo, (&url.URL{Path: strings.Trim(path, "/")}).String())
	if ref != "" {
		target += "?ref=" + url.QueryEscape(ref)
	}

	request, err := client.github.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("contentstore: build request: %w", err))
	}
	request.Header.Set("Accept", acceptRaw)

	var raw bytes.Buffer
	err = client.call(context, "read_raw", func() (*github.Response, error) {
		raw.Reset()
		return client.github.Do(context, request, &raw)
	})
	if err != nil {
		return nil, err
	}
	return raw.Bytes(), nil
}

/*
ListDir lists the entries directly under a directory.

Returns:
  - []Entry: Files and subdirectories
  - error: NOT_FOUND when the directory does not exist
*/
func (client *Client) ListDir(context context.Context, path string) ([]Entry, error) {
	var file *github.RepositoryContent
	var listing []*github.RepositoryContent
	err := client.call(context, "list_dir", func() (*github.Response, error) {
		var response *github.Response
		var err error
		file, listing, response, err = client.github.Repositories.GetContents(context, client.owner, client.repo, path, nil)
		return response, err
	})
	if err != nil {
		return nil, err
	}

	if file != nil {
		return nil, apperr.Transport(fmt.Sprintf("%s is not a directory", path), nil)
	}

	entries := make([]Entry, 0, len(listing))
	for _, item := range listing {
		entries = append(entries, toEntry(item))
	}
	return entries, nil
}

/*
PutFile creates or replaces one file in a single commit.

Description: sha must be the blob sha the caller read, or empty when the file
is expected to be absent. A stale sha yields CONFLICT.

Returns:
  - string: Blob sha of the new content
  - error: CONFLICT on a stale guard
*/
func (client *Client) PutFile(context context.Context, path string, content []byte, sha, message string) (string, error) {
	options := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: content,
		Branch:  github.String(client.branch),
	}

	write := client.github.Repositories.CreateFile
	if sha != "" {
		options.SHA = github.String(sha)
		write = client.github.Repositories.UpdateFile
	}

	var written *github.RepositoryContentResponse
	err := client.call(context, "put_file", func() (*github.Response, error) {
		var response *github.Response
		var err error
		written, response, err = write(context, client.owner, client.repo, path, options)
		return response, err
	})
	if err != nil {
		return "", err
	}

	return written.GetContent().GetSHA(), nil
}

// DeleteFile removes one file in a single commit. sha guards against
// deleting content the caller has not seen.
func (client *Client) DeleteFile(context context.Context, path, sha, message string) error {
	if message == "" {
		message = "Delete " + path
	}

	options := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		SHA:     github.String(sha),
		Branch:  github.String(client.branch),
	}

	return client.call(context, "delete_file", func() (*github.Response, error) {
		_, response, err := client.github.Repositories.DeleteFile(context, client.owner, client.repo, path, options)
		return response, err
	})
}

// # Git Data API

// CreateBlob uploads binary content and returns its blob sha.
func (client *Client) CreateBlob(context context.Context, content []byte) (string, error) {
	return client.createBlob(context, base64.StdEncoding.EncodeToString(content), EncodingBase64)
}

// CreateTextBlob uploads UTF-8 text and returns its blob sha.
func (client *Client) CreateTextBlob(context context.Context, text string) (string, error) {
	return client.createBlob(context, text, EncodingUTF8)
}

func (client *Client) createBlob(context context.Context, content string, encoding Encoding) (string, error) {
	blob := &github.Blob{Content: github.String(content), Encoding: github.String(string(encoding))}

	var created *github.Blob
	err := client.call(context, "create_blob", func() (*github.Response, error) {
		var response *github.Response
		var err error
		created, response, err = client.github.Git.CreateBlob(context, client.owner, client.repo, blob)
		return response, err
	})
	if err != nil {
		return "", err
	}
	return created.GetSHA(), nil
}

// GetLatestRevision returns the commit sha the branch currently points to.
func (client *Client) GetLatestRevision(context context.Context) (string, error) {
	var ref *github.Reference
	err := client.call(context, "get_ref", func() (*github.Response, error) {
		var response *github.Response
		var err error
		ref, response, err = client.github.Git.GetRef(context, client.owner, client.repo, "heads/"+client.branch)
		return response, err
	})
	if err != nil {
		return "", err
	}
	return ref.GetObject().GetSHA(), nil
}

// GetTreeID returns the root tree sha of a commit.
func (client *Client) GetTreeID(context context.Context, revision string) (string, error) {
	var commit *github.Commit
	err := client.call(context, "get_commit", func() (*github.Response, error) {
		var response *github.Response
		var err error
		commit, response, err = client.github.Git.GetCommit(context, client.owner, client.repo, revision)
		return response, err
	})
	if err != nil {
		return "", err
	}
	return commit.GetTree().GetSHA(), nil
}

// CreateTree layers items onto baseTree and returns the new tree sha.
func (client *Client) CreateTree(context context.Context, baseTree string, items []TreeItem) (string, error) {
	entries := make([]*github.TreeEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, item.treeEntry())
	}

	var tree *github.Tree
	err := client.call(context, "create_tree", func() (*github.Response, error) {
		var response *github.Response
		var err error
		tree, response, err = client.github.Git.CreateTree(context, client.owner, client.repo, baseTree, entries)
		return response, err
	})
	if err != nil {
		return "", err
	}
	return tree.GetSHA(), nil
}

// CreateRevision creates a commit with parent as its sole parent.
func (client *Client) CreateRevision(context context.Context, message, tree, parent string) (string, error) {
	commit := &github.Commit{
		Message: github.String(message),
		Tree:    &github.Tree{SHA: github.String(tree)},
		Parents: []*github.Commit{{SHA: github.String(parent)}},
	}

	var created *github.Commit
	err := client.call(context, "create_commit", func() (*github.Response, error) {
		var response *github.Response
		var err error
		created, response, err = client.github.Git.CreateCommit(context, client.owner, client.repo, commit, nil)
		return response, err
	})
	if err != nil {
		return "", err
	}
	return created.GetSHA(), nil
}

// UpdateRef fast-forwards the branch to revision. A concurrent update that
// makes the move non fast-forward yields CONFLICT.
func (client *Client) UpdateRef(context context.Context, revision string) error {
	ref := &github.Reference{
		Ref:    github.String("refs/heads/" + client.branch),
		Object: &github.GitObject{SHA: github.String(revision)},
	}

	return client.call(context, "update_ref", func() (*github.Response, error) {
		_, response, err := client.github.Git.UpdateRef(context, client.owner, client.repo, ref, false)
		return response, err
	})
}

// # Transport

// call runs one API request behind the rate limiter and classifies its failure.
func (client *Client) call(context context.Context, operation string, fn func() (*github.Response, error)) error {
	if client.limiter != nil {
		if err := client.limiter.Wait(context); err != nil {
			return apperr.Transport("Request cancelled while rate limited", err)
		}
	}

	response, err := fn()
	if err == nil {
		return nil
	}

	status := 0
	if response != nil && response.Response != nil {
		status = response.StatusCode
	}
	client.logger.DebugContext(context, "store_request_failed",
		slog.String("operation", operation),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)

	return classify(err)
}

// classify maps a go-github failure onto the error taxonomy. Primary and
// secondary rate limits are TRANSPORT_ERROR so callers retry them.
func classify(err error) error {
	var (
		primary   *github.RateLimitError
		secondary *github.AbuseRateLimitError
		upstream  *github.ErrorResponse
		syntax    *json.SyntaxError
	)

	switch {
	case errors.As(err, &primary):
		return apperr.Transport("Content store rate limit exceeded: "+primary.Message, err)
	case errors.As(err, &secondary):
		return apperr.Transport("Content store secondary rate limit exceeded: "+secondary.Message, err)
	case errors.As(err, &upstream) && upstream.Response != nil:
		return classifyStatus(upstream, err)
	case errors.As(err, &syntax):
		return apperr.Transport("Content store returned a non-JSON body", err)
	default:
		return apperr.Transport("Content store request failed", err)
	}
}

func classifyStatus(upstream *github.ErrorResponse, cause error) error {
	status := upstream.Response.StatusCode
	message := upstream.Message
	if message == "" {
		message = "HTTP " + http.StatusText(status)
	}

	var appError *apperr.AppError
	switch {
	case status == http.StatusForbidden && rateLimited(upstream):
		return apperr.Transport("Content store secondary rate limit exceeded: "+message, cause)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		appError = apperr.Unauthorized("Content store rejected the credentials: " + message)
	case status == http.StatusNotFound:
		appError = apperr.NotFound("Content store path")
	case status == http.StatusConflict || status == http.StatusUnprocessableEntity:
		appError = apperr.Conflict("Content store rejected a concurrent update: " + message)
	default:
		return apperr.Transport("Content store error: "+message, cause)
	}

	appError.Cause = cause
	return appError
}

// rateLimited catches the 403 throttling answers go-github does not type.
func rateLimited(upstream *github.ErrorResponse) bool {
	header := upstream.Response.Header
	if header.Get("Retry-After") != "" || header.Get("X-RateLimit-Remaining") == "0" {
		return true
	}
	return strings.Contains(strings.ToLower(upstream.Message), "rate limit")
}

// # Conversions

func contentOptions(ref string) *github.RepositoryContentGetOptions {
	if ref == "" {
		return nil
	}
	return &github.RepositoryContentGetOptions{Ref: ref}
}

func toEntry(content *github.RepositoryContent) Entry {
	return Entry{
		Name:        content.GetName(),
		Path:        content.GetPath(),
		SHA:         content.GetSHA(),
		Type:        content.GetType(),
		Size:        int64(content.GetSize()),
		DownloadURL: content.GetDownloadURL(),
	}
}
