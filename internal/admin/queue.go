// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"github.com/taibuivan/mangashelf/internal/platform/apperr"
	"github.com/taibuivan/mangashelf/internal/platform/constants"
)

// # Pending Deletes

// Task prefixes understood by the maintenance job.
const (
	TaskMigrate      = "MIGRATE:"
	TaskDeleteSeries = "DELETE_SERIES:"
)

// MigrateTask names the removal of an archived chapter.
func MigrateTask(seriesID, chapter string) string {
	return TaskMigrate + seriesID + "/" + chapter
}

// DeleteSeriesTask names the removal of a whole series.
func DeleteSeriesTask(seriesID string) string {
	return TaskDeleteSeries + seriesID
}

/*
Enqueue appends task to the pending-deletes document.

Description: Each attempt reads the document (absent means empty), returns
early when the task is already queued, and writes the extended list guarded
by the sha it read. A concurrent writer makes the guarded write fail and the
next attempt starts over from a fresh read.

Returns:
  - bool: Whether the task was added, false when it was already queued
  - error: UNAUTHORIZED immediately, otherwise RETRIES_EXHAUSTED wrapping the last failure
*/
func (service *Service) Enqueue(context context.Context, task string) (bool, error) {
	var lastErr error
	for attempt := 1; attempt <= constants.QueueAttempts; attempt++ {
		added, err := service.enqueueOnce(context, task)
		if err == nil {
			service.logger.InfoContext(context, "pending_delete_enqueued",
				slog.String("task", task),
				slog.Bool("added", added),
				slog.Int("attempt", attempt),
			)
			return added, nil
		}

		lastErr = err
		service.logger.WarnContext(context, "pending_delete_attempt_failed",
			slog.String("task", task),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)

		if apperr.HasCode(err, apperr.CodeUnauthorized) {
			return false, err
		}
		if context.Err() != nil {
			return false, apperr.Transport("Enqueue cancelled", context.Err())
		}
	}

	return false, apperr.RetriesExhausted(constants.QueueAttempts, lastErr)
}

func (service *Service) enqueueOnce(context context.Context, task string) (bool, error) {
	queue, sha, err := service.readQueue(context)
	if err != nil {
		return false, err
	}
	if slices.Contains(queue, task) {
		return false, nil
	}

	data, err := encodeList(append(queue, task))
	if err != nil {
		return false, err
	}

	message := "Admin: Queue delete " + task
	if _, err := service.store.PutFile(context, service.paths.PendingDeletesPath, data, sha, message); err != nil {
		return false, err
	}
	return true, nil
}

// PendingDeletes returns the queued tasks.
func (service *Service) PendingDeletes(context context.Context) ([]string, error) {
	queue, _, err := service.readQueue(context)
	return queue, err
}

func (service *Service) readQueue(context context.Context) ([]string, string, error) {
	file, err := service.store.ReadFile(context, service.paths.PendingDeletesPath, "")
	if apperr.HasCode(err, apperr.CodeNotFound) {
		return []string{}, "", nil
	}
	if err != nil {
		return nil, "", err
	}

	var queue []string
	if err := json.Unmarshal(file.Content, &queue); err != nil {
		return nil, "", fmt.Errorf("admin: pending deletes document: %w", err)
	}
	return queue, file.SHA, nil
}
