// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/taibuivan/mangashelf/internal/contentstore"
	"github.com/taibuivan/mangashelf/internal/platform/apperr"
	"github.com/taibuivan/mangashelf/internal/platform/validate"
	"github.com/taibuivan/mangashelf/pkg/result"
)

// DeleteResult reports the outcome of a deletion.
type DeleteResult struct {
	// Queued is the pending-deletes task, set when the work was handed to maintenance.
	Queued string `json:"queued,omitempty"`
	// Added is false when Queued was already pending.
	Added   bool `json:"added,omitempty"`
	Deleted int  `json:"deleted"`
	Failed  int  `json:"failed"`
}

// # Chapter and Series Deletion

/*
DeleteChapter removes a chapter.

Description: An archived chapter is queued for the maintenance job. A live
chapter has each file of its directory deleted one by one; this is not atomic
and reports PARTIAL_FAILURE when some deletions fail.

Returns:
  - *DeleteResult: Counts, or the queued task
  - error: NOT_FOUND for an unknown series or chapter, PARTIAL_FAILURE, store errors
*/
func (service *Service) DeleteChapter(context context.Context, seriesID, chapter string) (*DeleteResult, error) {
	if err := validateTarget(seriesID, chapter); err != nil {
		return nil, err
	}

	series, err := service.series(context, seriesID)
	if err != nil {
		return nil, err
	}
	if !series.HasChapter(chapter) {
		return nil, apperr.NotFound("Chapter")
	}

	if series.IsArchived(chapter) {
		return service.queue(context, MigrateTask(seriesID, chapter))
	}

	entries, err := service.store.ListDir(context, service.chapterPath(seriesID, chapter))
	if err != nil {
		return nil, err
	}
	return service.deleteEntries(context, entries, func(contentstore.Entry) bool { return true })
}

// DeleteSeries queues a series for removal by the maintenance job.
func (service *Service) DeleteSeries(context context.Context, seriesID string) (*DeleteResult, error) {
	validator := &validate.Validator{}
	if err := validator.Required(FieldSeries, seriesID).PathSegment(FieldSeries, seriesID).Err(); err != nil {
		return nil, err
	}
	return service.queue(context, DeleteSeriesTask(seriesID))
}

// QueueMigration queues an archived chapter for removal by the maintenance job.
func (service *Service) QueueMigration(context context.Context, seriesID, chapter string) (*DeleteResult, error) {
	if err := validateTarget(seriesID, chapter); err != nil {
		return nil, err
	}
	return service.queue(context, MigrateTask(seriesID, chapter))
}

/*
DeleteImages removes the selected files from a live chapter directory.

Description: Names not present in the directory are ignored. The result
counts the files actually deleted.

Returns:
  - *DeleteResult: Deleted and failed counts
  - error: PARTIAL_FAILURE when any selected file could not be deleted
*/
func (service *Service) DeleteImages(context context.Context, seriesID, chapter string, names []string) (*DeleteResult, error) {
	if err := validateTarget(seriesID, chapter); err != nil {
		return nil, err
	}
	validator := &validate.Validator{}
	if err := validate.NotEmpty(validator, FieldFiles, names).Err(); err != nil {
		return nil, err
	}

	entries, err := service.store.ListDir(context, service.chapterPath(seriesID, chapter))
	if err != nil {
		return nil, err
	}

	selected := make(map[string]bool, len(names))
	for _, name := range names {
		selected[name] = true
	}
	return service.deleteEntries(context, entries, func(entry contentstore.Entry) bool { return selected[entry.Name] })
}

func (service *Service) deleteEntries(context context.Context, entries []contentstore.Entry, keep func(contentstore.Entry) bool) (*DeleteResult, error) {
	var outcomes []result.Result[string]
	for _, entry := range entries {
		if !entry.IsFile() || !keep(entry) {
			continue
		}
		err := service.store.DeleteFile(context, entry.Path, entry.SHA, "Delete "+entry.Path)
		outcomes = append(outcomes, result.Of(entry.Path, err))
	}

	deleted, failures := result.Partition(outcomes)
	outcome := &DeleteResult{Deleted: len(deleted), Failed: len(failures)}

	service.logger.InfoContext(context, "files_deleted",
		slog.Int("deleted", outcome.Deleted),
		slog.Int("failed", outcome.Failed),
	)

	if len(failures) > 0 {
		msg := fmt.Sprintf("Deleted %d of %d files", outcome.Deleted, outcome.Deleted+outcome.Failed)
		return outcome, apperr.PartialFailure(msg, outcome.Deleted, outcome.Failed, errors.Join(failures...))
	}
	return outcome, nil
}

func (service *Service) queue(context context.Context, task string) (*DeleteResult, error) {
	added, err := service.Enqueue(context, task)
	if err != nil {
		return nil, err
	}
	return &DeleteResult{Queued: task, Added: added}, nil
}

func validateTarget(seriesID, chapter string) error {
	validator := &validate.Validator{}
	validator.Required(FieldSeries, seriesID).Required(FieldChapter, chapter)
	if seriesID != "" {
		validator.PathSegment(FieldSeries, seriesID)
	}
	if chapter != "" {
		validator.PathSegment(FieldChapter, chapter)
	}
	return validator.Err()
}
