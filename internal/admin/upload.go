// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package admin

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/taibuivan/mangashelf/internal/contentstore"
	"github.com/taibuivan/mangashelf/internal/imaging"
	"github.com/taibuivan/mangashelf/internal/library"
	"github.com/taibuivan/mangashelf/internal/platform/apperr"
	"github.com/taibuivan/mangashelf/internal/platform/constants"
	"github.com/taibuivan/mangashelf/internal/platform/validate"
	"github.com/taibuivan/mangashelf/pkg/slug"
)

// # Upload Types

// UploadKind selects what an upload replaces.
type UploadKind string

const (
	KindPage  UploadKind = "page"
	KindCover UploadKind = "cover"
)

// Upload fields named in validation errors.
const (
	FieldSeries  = "series"
	FieldKind    = "kind"
	FieldChapter = "chapter"
	FieldFiles   = "files"
)

// UploadFile is one source image.
type UploadFile struct {
	Name string
	Data []byte
}

// UploadRequest asks for pages of a chapter, or a series cover, to be stored.
type UploadRequest struct {
	SeriesID string
	// Title names a new series. The id is derived from it when SeriesID is empty.
	Title   string
	Kind    UploadKind
	Chapter string
	Files   []UploadFile
}

// UploadResult reports what a successful upload committed.
type UploadResult struct {
	SeriesID string   `json:"series"`
	Chapter  string   `json:"chapter,omitempty"`
	Revision string   `json:"revision"`
	Paths    []string `json:"paths"`
	Attempts int      `json:"attempts"`
}

type stagedFile struct {
	path string
	data []byte
}

// # Upload Workflow

/*
Upload stores pages or a cover and updates the manifest in one commit.

Description: Every file is transformed before anything is written, so a
single bad image aborts the upload with zero commits. Each output becomes a
blob. The commit layers the blobs and a manifest rewritten against the
attempt's base revision, so a concurrent writer's manifest changes survive.
The whole commit is retried with a fixed pause.

Parameters:
  - context: context.Context
  - request: UploadRequest

Returns:
  - *UploadResult: The committed revision and paths
  - error: VALIDATION_ERROR, UNPROCESSABLE for a bad image, or the last commit failure
*/
func (service *Service) Upload(context context.Context, request UploadRequest) (*UploadResult, error) {
	if request.SeriesID == "" {
		request.SeriesID = slug.From(request.Title)
	}
	if err := validateUpload(request); err != nil {
		return nil, err
	}

	staged, err := service.stage(request)
	if err != nil {
		return nil, err
	}

	items := make([]contentstore.TreeItem, 0, len(staged))
	paths := make([]string, 0, len(staged))
	for _, file := range staged {
		blob, err := service.store.CreateBlob(context, file.data)
		if err != nil {
			return nil, err
		}
		items = append(items, contentstore.BlobItem(file.path, blob))
		paths = append(paths, file.path)
	}

	message := fmt.Sprintf("Update %s [skip ci]", request.SeriesID)
	rebase := contentstore.WithRebase(service.manifestRebase(request))

	var lastErr error
	for attempt := 1; attempt <= service.uploadAttempts; attempt++ {
		commit, err := service.store.AtomicCommit(context, message, items, rebase)
		if err == nil {
			service.logger.InfoContext(context, "upload_committed",
				slog.String("series_id", request.SeriesID),
				slog.String("chapter", request.Chapter),
				slog.String("kind", string(request.Kind)),
				slog.Int("files", len(paths)),
				slog.String("revision", commit.Revision),
			)
			return &UploadResult{
				SeriesID: request.SeriesID,
				Chapter:  request.Chapter,
				Revision: commit.Revision,
				Paths:    paths,
				Attempts: attempt,
			}, nil
		}

		lastErr = err
		service.logger.WarnContext(context, "upload_commit_failed",
			slog.String("series_id", request.SeriesID),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)

		if apperr.HasCode(err, apperr.CodeUnauthorized) || attempt == service.uploadAttempts {
			break
		}
		if err := pause(context, service.uploadPause); err != nil {
			return nil, apperr.Transport("Upload cancelled", err)
		}
	}

	return nil, lastErr
}

func validateUpload(request UploadRequest) error {
	validator := &validate.Validator{}
	validator.Required(FieldSeries, request.SeriesID)
	if request.SeriesID != "" {
		validator.PathSegment(FieldSeries, request.SeriesID)
	}

	validator.OneOf(FieldKind, string(request.Kind), string(KindPage), string(KindCover))
	if request.Kind == KindPage {
		validator.Required(FieldChapter, request.Chapter)
		if request.Chapter != "" {
			validator.PathSegment(FieldChapter, request.Chapter)
		}
	}

	validate.NotEmpty(validator, FieldFiles, request.Files)
	return validator.Err()
}

// stage transforms every file and names its outputs.
func (service *Service) stage(request UploadRequest) ([]stagedFile, error) {
	purpose := imaging.PurposePage
	if request.Kind == KindCover {
		purpose = imaging.PurposeCover
	}

	var staged []stagedFile
	for _, file := range request.Files {
		outputs, err := service.transformer.Transform(file.Data, purpose)
		if err != nil {
			failure := apperr.Unprocessable("Failed to process " + file.Name)
			failure.Cause = err
			return nil, failure
		}

		if request.Kind == KindCover {
			staged = append(staged, stagedFile{path: service.coverPath(request.SeriesID), data: outputs[0].Data})
			continue
		}

		base := baseName(file.Name)
		for _, output := range outputs {
			name := base + output.Suffix + constants.PageExt
			staged = append(staged, stagedFile{path: service.chapterPath(request.SeriesID, request.Chapter) + "/" + name, data: output.Data})
		}
	}

	return staged, nil
}

// manifestRebase rewrites the manifest as of each attempt's base revision.
func (service *Service) manifestRebase(request UploadRequest) contentstore.RebaseFunc {
	return func(context context.Context, baseRevision string) ([]contentstore.TreeItem, error) {
		manifest, _, err := service.readManifest(context, baseRevision)
		if err != nil {
			return nil, err
		}

		series := manifest.Upsert(request.SeriesID)
		if request.Title != "" && (series.Title == "" || series.Title == series.ID) {
			series.Title = request.Title
		}
		switch request.Kind {
		case KindCover:
			series.Cover = service.coverPath(request.SeriesID)
		case KindPage:
			series.AddChapter(request.Chapter)
		}

		return service.manifestItem(context, manifest)
	}
}

func (service *Service) manifestItem(context context.Context, manifest library.Manifest) ([]contentstore.TreeItem, error) {
	data, err := manifest.Encode()
	if err != nil {
		return nil, err
	}
	blob, err := service.store.CreateTextBlob(context, string(data))
	if err != nil {
		return nil, err
	}
	return []contentstore.TreeItem{contentstore.BlobItem(service.paths.ManifestPath, blob)}, nil
}

// # Paths

func (service *Service) seriesPath(seriesID string) string {
	return service.paths.ContentRoot + "/" + seriesID
}

func (service *Service) chapterPath(seriesID, chapter string) string {
	return service.seriesPath(seriesID) + "/" + chapter
}

func (service *Service) coverPath(seriesID string) string {
	return service.seriesPath(seriesID) + "/cover" + constants.PageExt
}

// baseName strips directories and the extension from an uploaded file name.
func baseName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	return strings.TrimSuffix(name, path.Ext(name))
}

// pause waits for d or until the context ends.
func pause(context context.Context, d time.Duration) error {
	if d <= 0 {
		return context.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-context.Done():
		return context.Err()
	case <-timer.C:
		return nil
	}
}
