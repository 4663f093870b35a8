// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/taibuivan/mangashelf/internal/reader"
	"github.com/taibuivan/mangashelf/internal/viewstate"
)

var (
	browseLong = templates.LongDesc(`
		Browse the library interactively, the way the reader site does.

		Navigation follows the reader's views: home lists the series, the
		chapter list pages through a series and the reader resolves every page
		URL of a chapter. back and forward replay the navigation history.`)

	browseExample = templates.Examples(`
		# Start at the chapter list of a series
		shelfctl browse --at "?series=solo-leveling"`)

	browseHelp = strings.TrimSpace(`
commands:
  open SERIES      show the chapters of a series
  read CHAPTER     open a chapter of the current series
  next | prev      open the neighbouring chapter
  chapters [PAGE]  back to the chapter list, optionally at a page
  home             back to the series list
  back | forward   move through the history
  goto QUERY       jump to a URL query such as ?series=a&ch=2
  quit`)
)

// BrowseOptions defines the options for the `browse` command.
type BrowseOptions struct {
	*ShelfOptions

	At string
}

// NewBrowseOptions provides an initialised BrowseOptions instance.
func NewBrowseOptions(shelf *ShelfOptions) *BrowseOptions {
	return &BrowseOptions{ShelfOptions: shelf}
}

// NewBrowseCommand creates the `browse` command.
func NewBrowseCommand(o *BrowseOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "browse",
		Short:   "Browse the library interactively",
		Long:    browseLong,
		Example: browseExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.Run(cmd)
		},
	}

	cmd.Flags().StringVar(&o.At, "at", "", "Query string to start from")

	return cmd
}

// Run loads the catalog and reads commands until quit or end of input.
func (o *BrowseOptions) Run(cmd *cobra.Command) error {
	env, err := o.Environment()
	if err != nil {
		return err
	}

	ctx, cancel := interruptible(cmd.Context())
	defer cancel()

	if err := env.Catalog.Refresh(ctx); err != nil {
		return err
	}

	browser := newBrowser(env, o.Out, o.ErrOut, o.At)
	browser.machine.SyncFromURL(ctx, o.At)

	scanner := bufio.NewScanner(o.In)
	for {
		fmt.Fprint(o.Out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(o.Out)
			return scanner.Err()
		}
		if !browser.Execute(ctx, scanner.Text()) {
			return nil
		}
	}
}

// # Browser

// browser renders the views of a [viewstate.Machine] as text.
type browser struct {
	env     *Environment
	out     io.Writer
	errOut  io.Writer
	machine *viewstate.Machine
	page    int
	chapter *reader.Chapter
}

func newBrowser(env *Environment, out, errOut io.Writer, at string) *browser {
	b := &browser{env: env, out: out, errOut: errOut, page: 1}
	b.machine = viewstate.New(b, viewstate.NewMemoryHistory(at),
		viewstate.WithHooks(viewstate.StateHome, viewstate.Hooks{Enter: b.enterHome}),
		viewstate.WithHooks(viewstate.StateChapterList, viewstate.Hooks{Enter: b.enterChapters}),
		viewstate.WithHooks(viewstate.StateReader, viewstate.Hooks{Enter: b.enterReader, Exit: b.exitReader}),
		viewstate.WithLogger(env.Logger),
	)
	return b
}

// Show prints the view header.
func (b *browser) Show(state viewstate.State) {
	fmt.Fprintf(b.out, "== %s ==\n", state)
}

// Execute runs one command line. It returns false on quit.
func (b *browser) Execute(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}

	position := b.machine.Position()
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	var moved bool
	switch fields[0] {
	case "quit", "exit":
		return false
	case "help":
		fmt.Fprintln(b.out, browseHelp)
		return true
	case "open":
		b.page = 1
		moved = b.machine.Send(ctx, viewstate.EventOpenSeries, viewstate.Position{SeriesID: arg})
	case "read":
		moved = b.machine.Send(ctx, viewstate.EventOpenChapter, viewstate.Position{SeriesID: position.SeriesID, ChapterID: arg})
	case "next", "prev":
		moved = b.neighbour(ctx, fields[0] == "next")
	case "chapters":
		if page, err := strconv.Atoi(arg); err == nil {
			b.page = page
		}
		if b.machine.Current() == viewstate.StateChapterList {
			b.enterChapters(ctx, position)
			return true
		}
		moved = b.machine.Send(ctx, viewstate.EventGoChapters, viewstate.Position{SeriesID: position.SeriesID})
	case "home":
		moved = b.machine.Send(ctx, viewstate.EventGoHome, viewstate.Position{})
	case "back":
		moved = b.machine.Back(ctx)
	case "forward":
		moved = b.machine.Forward(ctx)
	case "goto":
		b.machine.SyncFromURL(ctx, arg)
		moved = true
	default:
		fmt.Fprintf(b.errOut, "unknown command %q, try help\n", fields[0])
		return true
	}

	if !moved {
		fmt.Fprintf(b.errOut, "%s is not available from %s\n", fields[0], b.machine.Current())
	}
	return true
}

func (b *browser) neighbour(ctx context.Context, next bool) bool {
	if b.chapter == nil {
		return false
	}
	target := b.chapter.Prev
	if next {
		target = b.chapter.Next
	}
	if target == "" {
		return false
	}
	return b.machine.Send(ctx, viewstate.EventOpenChapter, viewstate.Position{SeriesID: b.chapter.SeriesID, ChapterID: target})
}

// # Views

func (b *browser) enterHome(ctx context.Context, _ viewstate.Position) {
	manifest := b.env.Catalog.Manifest()
	if len(manifest) == 0 {
		fmt.Fprintln(b.out, "(empty library)")
		return
	}
	for _, series := range manifest {
		fmt.Fprintf(b.out, "%-24s %-32s %d chapters\n", series.ID, series.DisplayTitle(), len(series.Chapters))
	}
}

func (b *browser) enterChapters(ctx context.Context, position viewstate.Position) {
	listing, err := b.env.Catalog.Chapters(position.SeriesID, b.page, true)
	if err != nil {
		fmt.Fprintf(b.errOut, "error: %v\n", err)
		return
	}

	series, _ := b.env.Catalog.Series(position.SeriesID)
	fmt.Fprintf(b.out, "%s (page %d of %d)\n", series.DisplayTitle(), listing.Meta.Page, max(listing.Meta.TotalPages, 1))
	for _, label := range listing.Labels {
		marker := ""
		if series.IsArchived(label) {
			marker = " [archived]"
		}
		fmt.Fprintf(b.out, "  %s%s\n", label, marker)
	}
}

func (b *browser) enterReader(ctx context.Context, position viewstate.Position) {
	series, err := b.env.Catalog.Series(position.SeriesID)
	if err != nil {
		fmt.Fprintf(b.errOut, "error: %v\n", err)
		return
	}

	chapter, err := b.env.Resolver.Resolve(ctx, series, position.ChapterID)
	if err != nil {
		fmt.Fprintf(b.errOut, "error: %v\n", err)
		return
	}
	b.chapter = chapter

	fmt.Fprintf(b.out, "%s chapter %s, %d pages\n", series.DisplayTitle(), chapter.Label, len(chapter.Pages))
	for _, page := range chapter.Pages {
		fmt.Fprintf(b.out, "  %s\n", page.URL)
	}
	fmt.Fprintf(b.out, "prev: %s  next: %s\n", orNone(chapter.Prev), orNone(chapter.Next))
}

func (b *browser) exitReader(context.Context) {
	b.chapter = nil
}

func orNone(label string) string {
	if label == "" {
		return "-"
	}
	return label
}
