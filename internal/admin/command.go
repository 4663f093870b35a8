// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package admin

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/taibuivan/mangashelf/internal/audit"
)

// # Commands

// Command is one admin action. Commands are the only way the HTTP layer and
// the CLI mutate the store.
type Command interface {
	// Name is the audited action name.
	Name() string
	// Target returns the audited entity type and id.
	Target() (entityType, entityID string)
	// Execute runs the action.
	Execute(context context.Context, service *Service) (any, error)
}

// UploadCommand stores pages or a cover.
type UploadCommand struct{ Request UploadRequest }

func (command UploadCommand) Name() string { return "upload_" + string(command.Request.Kind) }

func (command UploadCommand) Target() (string, string) {
	if command.Request.Kind == KindCover {
		return audit.EntitySeries, command.Request.SeriesID
	}
	return audit.EntityChapter, command.Request.SeriesID + "/" + command.Request.Chapter
}

func (command UploadCommand) Execute(context context.Context, service *Service) (any, error) {
	return service.Upload(context, command.Request)
}

// DeleteChapterCommand removes one chapter.
type DeleteChapterCommand struct{ SeriesID, Chapter string }

func (command DeleteChapterCommand) Name() string { return "delete_chapter" }

func (command DeleteChapterCommand) Target() (string, string) {
	return audit.EntityChapter, command.SeriesID + "/" + command.Chapter
}

func (command DeleteChapterCommand) Execute(context context.Context, service *Service) (any, error) {
	return service.DeleteChapter(context, command.SeriesID, command.Chapter)
}

// DeleteSeriesCommand queues a series for removal.
type DeleteSeriesCommand struct{ SeriesID string }

func (command DeleteSeriesCommand) Name() string { return "delete_series" }

func (command DeleteSeriesCommand) Target() (string, string) {
	return audit.EntitySeries, command.SeriesID
}

func (command DeleteSeriesCommand) Execute(context context.Context, service *Service) (any, error) {
	return service.DeleteSeries(context, command.SeriesID)
}

// DeleteImagesCommand removes selected files of a live chapter.
type DeleteImagesCommand struct {
	SeriesID string
	Chapter  string
	Names    []string
}

func (command DeleteImagesCommand) Name() string { return "delete_images" }

func (command DeleteImagesCommand) Target() (string, string) {
	return audit.EntityChapter, command.SeriesID + "/" + command.Chapter
}

func (command DeleteImagesCommand) Execute(context context.Context, service *Service) (any, error) {
	return service.DeleteImages(context, command.SeriesID, command.Chapter, command.Names)
}

// QueueMigrationCommand queues an archived chapter for removal.
type QueueMigrationCommand struct{ SeriesID, Chapter string }

func (command QueueMigrationCommand) Name() string { return "queue_migration" }

func (command QueueMigrationCommand) Target() (string, string) {
	return audit.EntityChapter, command.SeriesID + "/" + command.Chapter
}

func (command QueueMigrationCommand) Execute(context context.Context, service *Service) (any, error) {
	return service.QueueMigration(context, command.SeriesID, command.Chapter)
}

// MaintenanceCommand dispatches the maintenance job.
type MaintenanceCommand struct{}

func (MaintenanceCommand) Name() string { return "trigger_maintenance" }

func (MaintenanceCommand) Target() (string, string) { return audit.EntityJob, "maintenance" }

func (MaintenanceCommand) Execute(context context.Context, service *Service) (any, error) {
	return nil, service.TriggerMaintenance(context)
}

// DeployCommand dispatches the deploy job without waiting for it.
type DeployCommand struct{}

func (DeployCommand) Name() string { return "trigger_deploy" }

func (DeployCommand) Target() (string, string) { return audit.EntityJob, "deploy" }

func (DeployCommand) Execute(context context.Context, service *Service) (any, error) {
	return nil, service.TriggerDeploy(context)
}

// # Dispatcher

// Actor identifies who issued a command.
type Actor struct {
	ID string
	IP string
}

// Dispatcher runs commands and performs the follow-up every mutation needs.
type Dispatcher struct {
	service  *Service
	recorder audit.Recorder
	readers  Refresher
	pages    PageCache
	logger   *slog.Logger
}

// DispatcherOption customizes a [Dispatcher].
type DispatcherOption func(*Dispatcher)

// WithPageCache makes every successful series or chapter command forget the
// page lookups remembered for that series.
func WithPageCache(pages PageCache) DispatcherOption {
	return func(dispatcher *Dispatcher) { dispatcher.pages = pages }
}

// NewDispatcher builds a dispatcher. readers refreshes the reader-facing
// catalog and may be nil.
func NewDispatcher(service *Service, recorder audit.Recorder, readers Refresher, logger *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	dispatcher := &Dispatcher{service: service, recorder: recorder, readers: readers, logger: logger}
	for _, opt := range opts {
		opt(dispatcher)
	}
	return dispatcher
}

// Service returns the underlying workflows for read-only queries.
func (dispatcher *Dispatcher) Service() *Service { return dispatcher.service }

/*
Dispatch executes command on behalf of actor.

Description: On success the admin state is re-fetched from the store, the
reader catalog is refreshed, remembered page lookups of the affected series
are dropped and an audit entry is written. Failures of these
follow-ups are logged and never fail the command. On failure nothing is
refreshed, so the cached state is left as it was.

Returns:
  - any: The command's result
  - error: The command's error
*/
func (dispatcher *Dispatcher) Dispatch(context context.Context, actor Actor, command Command) (any, error) {
	started := time.Now()
	entityType, entityID := command.Target()

	outcome, err := command.Execute(context, dispatcher.service)
	if err != nil {
		dispatcher.logger.WarnContext(context, "admin_command_failed",
			slog.String("command", command.Name()),
			slog.String("target", entityID),
			slog.String("error", err.Error()),
		)
		return outcome, err
	}

	mutation := Mutation{Command: command.Name(), Target: entityID, At: time.Now().UTC()}
	if upload, ok := outcome.(*UploadResult); ok {
		mutation.Revision = upload.Revision
	}
	dispatcher.service.state.RecordMutation(mutation)

	if _, err := dispatcher.service.Refresh(context); err != nil {
		dispatcher.logger.WarnContext(context, "admin_state_refresh_failed", slog.String("error", err.Error()))
	}
	if dispatcher.readers != nil {
		if err := dispatcher.readers.Refresh(context); err != nil {
			dispatcher.logger.WarnContext(context, "catalog_refresh_failed", slog.String("error", err.Error()))
		}
	}
	if seriesID := targetSeries(entityType, entityID); seriesID != "" && dispatcher.pages != nil {
		dispatcher.pages.ForgetSeries(seriesID)
	}

	if dispatcher.recorder != nil {
		entry := audit.NewEntry(actor.ID, command.Name(), entityType, entityID)
		entry.IPAddress = actor.IP
		entry.Detail = map[string]any{"result": outcome}
		if err := dispatcher.recorder.Record(context, entry); err != nil {
			dispatcher.logger.WarnContext(context, "audit_record_failed", slog.String("error", err.Error()))
		}
	}

	dispatcher.logger.InfoContext(context, "admin_command_succeeded",
		slog.String("command", command.Name()),
		slog.String("target", entityID),
		slog.Duration("duration", time.Since(started)),
	)
	return outcome, nil
}

// targetSeries returns the series a series or chapter target belongs to.
func targetSeries(entityType, entityID string) string {
	switch entityType {
	case audit.EntitySeries:
		return entityID
	case audit.EntityChapter:
		seriesID, _, _ := strings.Cut(entityID, "/")
		return seriesID
	}
	return ""
}
