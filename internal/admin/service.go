// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package admin implements the mutations of the admin console: uploading pages
and covers, deleting chapters, series and images, queueing archive work for
the maintenance job and triggering workflows.

Mutations go through the content store. Uploads are one atomic commit that
also rewrites the manifest; deletions of archived content are queued in the
pending-deletes document because the archive mirrors are only written by the
maintenance job.

Commands are dispatched by [Dispatcher], which refreshes the cached manifest
and records an audit entry after every successful mutation.
*/
package admin

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/taibuivan/mangashelf/internal/contentstore"
	"github.com/taibuivan/mangashelf/internal/imaging"
	"github.com/taibuivan/mangashelf/internal/library"
	"github.com/taibuivan/mangashelf/internal/platform/apperr"
	"github.com/taibuivan/mangashelf/internal/platform/config"
	"github.com/taibuivan/mangashelf/internal/platform/constants"
)

// # Collaborators

// Store is the subset of the content store client the workflows use.
type Store interface {
	ReadFile(context context.Context, path, ref string) (*contentstore.File, error)
	ListDir(context context.Context, path string) ([]contentstore.Entry, error)
	PutFile(context context.Context, path string, content []byte, sha, message string) (string, error)
	DeleteFile(context context.Context, path, sha, message string) error
	CreateBlob(context context.Context, content []byte) (string, error)
	CreateTextBlob(context context.Context, text string) (string, error)
	AtomicCommit(context context.Context, message string, items []contentstore.TreeItem, opts ...contentstore.CommitOption) (*contentstore.CommitResult, error)
	DispatchJob(context context.Context, workflow string, inputs map[string]string) error
	ListRecentJobs(context context.Context, limit int) ([]contentstore.JobRun, error)
}

// Transformer converts uploaded images into stored outputs.
type Transformer interface {
	Transform(data []byte, purpose imaging.Purpose) ([]imaging.Output, error)
}

// Refresher reloads a reader-facing copy of the manifest.
type Refresher interface {
	Refresh(context context.Context) error
}

// PageCache drops remembered page lookups for a series.
type PageCache interface {
	ForgetSeries(seriesID string)
}

// # Service Layer

// Service runs the admin workflows against the content store.
type Service struct {
	store       Store
	transformer Transformer
	state       *State
	paths       config.StoreConfig
	logger      *slog.Logger

	uploadAttempts int
	uploadPause    time.Duration
	pollQueued     time.Duration
	pollRunning    time.Duration
	maxPolls       int
}

// Option customizes a [Service].
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(service *Service) { service.logger = logger }
}

// WithUploadRetry overrides the outer upload retry budget and pause.
func WithUploadRetry(attempts int, pause time.Duration) Option {
	return func(service *Service) {
		service.uploadAttempts = attempts
		service.uploadPause = pause
	}
}

// WithDeployPolling overrides the deploy watch cadence.
func WithDeployPolling(queued, running time.Duration, maxPolls int) Option {
	return func(service *Service) {
		service.pollQueued = queued
		service.pollRunning = running
		service.maxPolls = maxPolls
	}
}

// NewService builds the admin workflows. paths supplies the manifest,
// pending-deletes and content root locations.
func NewService(store Store, transformer Transformer, state *State, paths config.StoreConfig, opts ...Option) *Service {
	service := &Service{
		store:          store,
		transformer:    transformer,
		state:          state,
		paths:          paths,
		logger:         slog.Default(),
		uploadAttempts: constants.UploadAttempts,
		uploadPause:    constants.UploadRetryPause,
		pollQueued:     constants.DeployPollInterval,
		pollRunning:    constants.DeployPollIntervalRunning,
		maxPolls:       constants.DeployMaxPolls,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// State returns the admin state the service updates.
func (service *Service) State() *State { return service.state }

// # Manifest Access

/*
Refresh re-reads the manifest at the branch head into the admin state.

Returns:
  - library.Manifest: The fresh manifest
  - error: Store errors, or a parse failure for a corrupt document
*/
func (service *Service) Refresh(context context.Context) (library.Manifest, error) {
	manifest, _, err := service.readManifest(context, "")
	if err != nil {
		return nil, err
	}
	service.state.SetManifest(manifest)
	return manifest, nil
}

// manifest returns the cached manifest, loading it on first use.
func (service *Service) manifest(context context.Context) (library.Manifest, error) {
	if manifest, ok := service.state.Manifest(); ok {
		return manifest, nil
	}
	return service.Refresh(context)
}

// readManifest reads the manifest at ref. A missing document is an empty manifest.
func (service *Service) readManifest(context context.Context, ref string) (library.Manifest, string, error) {
	file, err := service.store.ReadFile(context, service.paths.ManifestPath, ref)
	if apperr.HasCode(err, apperr.CodeNotFound) {
		return library.Manifest{}, "", nil
	}
	if err != nil {
		return nil, "", err
	}

	manifest, err := library.Parse(file.Content)
	if err != nil {
		return nil, "", apperr.Internal(err)
	}
	return manifest, file.SHA, nil
}

// series finds id in the cached manifest.
func (service *Service) series(context context.Context, id string) (library.Series, error) {
	manifest, err := service.manifest(context)
	if err != nil {
		return library.Series{}, err
	}
	series, ok := manifest.Find(id)
	if !ok {
		return library.Series{}, apperr.NotFound("Series")
	}
	return *series, nil
}

// # Dashboard

// Dashboard is the admin overview.
type Dashboard struct {
	Stats        library.Stats `json:"stats"`
	LastMutation *Mutation     `json:"last_mutation,omitempty"`
}

// Dashboard summarizes the cached manifest.
func (service *Service) Dashboard(context context.Context) (Dashboard, error) {
	manifest, err := service.manifest(context)
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{Stats: manifest.Stats(), LastMutation: service.state.LastMutation()}, nil
}

// encodeList writes a JSON string list with two-space indentation.
func encodeList(list []string) ([]byte, error) {
	if list == nil {
		list = []string{}
	}
	return json.MarshalIndent(list, "", "  ")
}
