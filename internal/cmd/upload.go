// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/taibuivan/mangashelf/internal/admin"
	"github.com/taibuivan/mangashelf/pkg/natsort"
	"github.com/taibuivan/mangashelf/pkg/slug"
)

var (
	uploadLong = templates.LongDesc(`
		Convert images to WebP and commit them to the library in one commit.

		Pages are scaled to the reader width and tall pages are split into
		parts. A cover is fitted into the cover box. The manifest entry is
		created or updated in the same commit.

		Directories are expanded to the files they contain, in natural order.`)

	uploadExample = templates.Examples(`
		# Upload a chapter from a directory
		shelfctl upload solo-leveling --chapter 12 ./chapter-12

		# Create a series from its title and upload a cover
		shelfctl upload --title "Solo Leveling" --kind cover ./cover.png`)
)

// UploadOptions defines the options for the `upload` command.
type UploadOptions struct {
	*ShelfOptions

	SeriesID string
	Title    string
	Kind     string
	Chapter  string
	Paths    []string

	files []admin.UploadFile
}

// NewUploadOptions provides an initialised UploadOptions instance.
func NewUploadOptions(shelf *ShelfOptions) *UploadOptions {
	return &UploadOptions{ShelfOptions: shelf}
}

// NewUploadCommand creates the `upload` command.
func NewUploadCommand(o *UploadOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "upload [SERIES] PATH...",
		DisableFlagsInUseLine: true,
		Short:                 "Upload chapter pages or a series cover",
		Long:                  uploadLong,
		Example:               uploadExample,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(); err != nil {
				return err
			}
			return o.Run(cmd)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&o.Title, "title", "t", "", "Series title; also derives the series id when SERIES is omitted")
	flags.StringVarP(&o.Kind, "kind", "k", string(admin.KindPage), "What to upload: page or cover")
	flags.StringVarP(&o.Chapter, "chapter", "c", "", "Chapter label for pages")

	return cmd
}

// Complete splits the series from the paths and reads every file.
func (o *UploadOptions) Complete(cmd *cobra.Command, args []string) error {
	o.Paths = args
	if o.Title == "" && len(args) > 1 {
		o.SeriesID, o.Paths = args[0], args[1:]
	}
	if o.Title != "" && o.SeriesID == "" {
		o.SeriesID = slug.From(o.Title)
	}

	for _, path := range o.Paths {
		files, err := readUploadPath(path)
		if err != nil {
			return err
		}
		o.files = append(o.files, files...)
	}
	return nil
}

// Validate checks the options the service cannot check itself.
func (o *UploadOptions) Validate() error {
	if o.SeriesID == "" {
		return fmt.Errorf("a series id or --title is required")
	}
	if len(o.files) == 0 {
		return fmt.Errorf("at least one image is required")
	}
	return nil
}

// Run dispatches the upload and prints the result.
func (o *UploadOptions) Run(cmd *cobra.Command) error {
	env, err := o.Environment()
	if err != nil {
		return err
	}

	ctx, cancel := interruptible(cmd.Context())
	defer cancel()

	outcome, err := env.Dispatcher.Dispatch(ctx, cliActor(), admin.UploadCommand{Request: admin.UploadRequest{
		SeriesID: o.SeriesID,
		Title:    o.Title,
		Kind:     admin.UploadKind(o.Kind),
		Chapter:  o.Chapter,
		Files:    o.files,
	}})
	if err != nil {
		return err
	}
	return printJSON(o.Out, outcome)
}

// readUploadPath reads one file, or every regular file of a directory in
// natural name order.
func readUploadPath(path string) ([]admin.UploadFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return []admin.UploadFile{{Name: filepath.Base(path), Data: data}}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	natsort.Sort(names)

	files := make([]admin.UploadFile, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(path, name))
		if err != nil {
			return nil, err
		}
		files = append(files, admin.UploadFile{Name: name, Data: data})
	}
	return files, nil
}
