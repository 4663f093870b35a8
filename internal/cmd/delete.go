// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/taibuivan/mangashelf/internal/admin"
	"github.com/taibuivan/mangashelf/pkg/query"
)

var (
	deleteChapterLong = templates.LongDesc(`
		Delete one chapter.

		A live chapter's files are removed one by one. An archived chapter is
		queued for the maintenance job instead.`)

	deleteSeriesLong = templates.LongDesc(`
		Queue a whole series for removal by the maintenance job.`)

	deleteImagesLong = templates.LongDesc(`
		Delete selected files of a live chapter. Names may be given as separate
		arguments or comma-separated. Names not present in the chapter are
		ignored.`)

	migrateLong = templates.LongDesc(`
		Queue an archived chapter for removal by the maintenance job.`)
)

// TargetOptions names a series and optionally a chapter and file names.
type TargetOptions struct {
	*ShelfOptions

	SeriesID string
	Chapter  string
	Names    []string
}

// NewTargetOptions provides an initialised TargetOptions instance.
func NewTargetOptions(shelf *ShelfOptions) *TargetOptions {
	return &TargetOptions{ShelfOptions: shelf}
}

// Complete reads SERIES [CHAPTER [NAME...]] from args. A NAME may be a
// comma-separated list.
func (o *TargetOptions) Complete(args []string) {
	o.SeriesID = args[0]
	if len(args) > 1 {
		o.Chapter = args[1]
	}
	for _, arg := range args[min(len(args), 2):] {
		o.Names = append(o.Names, query.StringSlice(arg)...)
	}
}

// dispatch runs command and prints its outcome.
func (o *TargetOptions) dispatch(cmd *cobra.Command, command admin.Command) error {
	env, err := o.Environment()
	if err != nil {
		return err
	}

	ctx, cancel := interruptible(cmd.Context())
	defer cancel()

	outcome, err := env.Dispatcher.Dispatch(ctx, cliActor(), command)
	if outcome != nil {
		if printErr := printJSON(o.Out, outcome); printErr != nil && err == nil {
			err = printErr
		}
	}
	return err
}

// NewDeleteChapterCommand creates the `delete-chapter` command.
func NewDeleteChapterCommand(o *TargetOptions) *cobra.Command {
	return &cobra.Command{
		Use:                   "delete-chapter SERIES CHAPTER",
		DisableFlagsInUseLine: true,
		Short:                 "Delete a chapter",
		Long:                  deleteChapterLong,
		Args:                  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			o.Complete(args)
			return o.dispatch(cmd, admin.DeleteChapterCommand{SeriesID: o.SeriesID, Chapter: o.Chapter})
		},
	}
}

// NewDeleteSeriesCommand creates the `delete-series` command.
func NewDeleteSeriesCommand(o *TargetOptions) *cobra.Command {
	return &cobra.Command{
		Use:                   "delete-series SERIES",
		DisableFlagsInUseLine: true,
		Short:                 "Queue a series for removal",
		Long:                  deleteSeriesLong,
		Args:                  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o.Complete(args)
			return o.dispatch(cmd, admin.DeleteSeriesCommand{SeriesID: o.SeriesID})
		},
	}
}

// NewDeleteImagesCommand creates the `delete-images` command.
func NewDeleteImagesCommand(o *TargetOptions) *cobra.Command {
	return &cobra.Command{
		Use:                   "delete-images SERIES CHAPTER NAME...",
		DisableFlagsInUseLine: true,
		Short:                 "Delete selected files of a chapter",
		Long:                  deleteImagesLong,
		Args:                  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			o.Complete(args)
			return o.dispatch(cmd, admin.DeleteImagesCommand{SeriesID: o.SeriesID, Chapter: o.Chapter, Names: o.Names})
		},
	}
}

// NewMigrateCommand creates the `migrate` command.
func NewMigrateCommand(o *TargetOptions) *cobra.Command {
	return &cobra.Command{
		Use:                   "migrate SERIES CHAPTER",
		DisableFlagsInUseLine: true,
		Short:                 "Queue an archived chapter for removal",
		Long:                  migrateLong,
		Args:                  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			o.Complete(args)
			return o.dispatch(cmd, admin.QueueMigrationCommand{SeriesID: o.SeriesID, Chapter: o.Chapter})
		},
	}
}

// NewImagesCommand creates the `images` command.
func NewImagesCommand(o *TargetOptions) *cobra.Command {
	return &cobra.Command{
		Use:                   "images SERIES CHAPTER",
		DisableFlagsInUseLine: true,
		Short:                 "List the files of a chapter",
		Args:                  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			o.Complete(args)

			env, err := o.Environment()
			if err != nil {
				return err
			}
			images, err := env.Service().ListChapterImages(cmd.Context(), o.SeriesID, o.Chapter)
			if err != nil {
				return err
			}
			return printJSON(o.Out, images)
		},
	}
}
