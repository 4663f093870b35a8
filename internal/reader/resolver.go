// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package reader assembles a chapter's ordered page URLs without knowing its
page count up front.

Live chapters are discovered by probing the site for 01.webp, 02.webp and so
on. A page that is missing as a whole may be split into tall strips named
_part1, _part2 and so on. The first page number with no image at all ends the
chapter. Archived chapters are either enumerated from their descriptor or
probed on the worker mirror with the cold backup as second choice.
*/
package reader

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/taibuivan/mangashelf/internal/library"
	"github.com/taibuivan/mangashelf/internal/platform/apperr"
	"github.com/taibuivan/mangashelf/internal/platform/config"
	"github.com/taibuivan/mangashelf/internal/platform/constants"
)

// # Types

// Page is one displayable image. Split pages yield one Page per part.
type Page struct {
	Number      int    `json:"number"`
	Part        int    `json:"part,omitempty"`
	URL         string `json:"url"`
	FallbackURL string `json:"fallback_url,omitempty"`
}

// Chapter is a resolved chapter with its neighbours in natural order.
type Chapter struct {
	SeriesID string `json:"series_id"`
	Label    string `json:"chapter"`
	Archived bool   `json:"archived"`
	Pages    []Page `json:"pages"`
	Prev     string `json:"prev,omitempty"`
	Next     string `json:"next,omitempty"`
}

// Layout locates pages on the site and the archive mirrors.
type Layout struct {
	SiteURL     string
	WorkerURL   string
	BackupURL   string
	ContentRoot string
}

// NewLayout derives a layout from the mirror configuration.
func NewLayout(mirror config.MirrorConfig, contentRoot string) Layout {
	return Layout{
		SiteURL:     strings.TrimRight(mirror.SiteURL, "/"),
		WorkerURL:   strings.TrimRight(mirror.WorkerURL, "/"),
		BackupURL:   strings.TrimRight(mirror.BackupURL, "/"),
		ContentRoot: strings.Trim(contentRoot, "/"),
	}
}

// # Resolver

// Resolver discovers chapter pages through a [Prober].
type Resolver struct {
	prober   Prober
	layout   Layout
	logger   *slog.Logger
	maxPages int
	maxParts int
}

// NewResolver builds a resolver with the standard page and part caps.
func NewResolver(prober Prober, layout Layout, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		prober:   prober,
		layout:   layout,
		logger:   logger,
		maxPages: constants.MaxPages,
		maxParts: constants.MaxParts,
	}
}

/*
ForgetSeries drops remembered probe answers for every page of a series on the
site and both mirrors. It does nothing when the prober keeps no memory.
*/
func (resolver *Resolver) ForgetSeries(seriesID string) {
	forgetter, ok := resolver.prober.(Forgetter)
	if !ok || seriesID == "" {
		return
	}

	prefixes := []string{
		joinURL(resolver.layout.SiteURL, resolver.layout.ContentRoot, seriesID),
		joinURL(resolver.layout.WorkerURL, seriesID),
		joinURL(resolver.layout.BackupURL, seriesID),
	}
	for _, prefix := range prefixes {
		if prefix != "" {
			forgetter.Forget(prefix + "/")
		}
	}
}

/*
Resolve lists the pages of one chapter.

Parameters:
  - context: context.Context
  - series: library.Series (Manifest entry that owns the chapter)
  - label: string (Chapter label)

Returns:
  - *Chapter: Ordered pages plus previous and next labels; Pages may be empty
  - error: NOT_FOUND when the label is not listed
*/
func (resolver *Resolver) Resolve(context context.Context, series library.Series, label string) (*Chapter, error) {
	if !series.HasChapter(label) {
		return nil, apperr.NotFound("Chapter")
	}

	started := time.Now()
	descriptor, archived := series.Archive(label)

	var pages []Page
	switch {
	case archived && !descriptor.IsLegacy():
		pages = resolver.describedPages(series.ID, label, descriptor)
	case archived:
		pages = resolver.mirroredPages(context, series.ID, label, descriptor)
	default:
		pages = resolver.livePages(context, series.ID, label)
	}

	prev, next := series.Neighbors(label)
	chapter := &Chapter{
		SeriesID: series.ID,
		Label:    label,
		Archived: archived,
		Pages:    pages,
		Prev:     prev,
		Next:     next,
	}

	resolver.logger.DebugContext(context, "chapter_resolved",
		slog.String("series", series.ID),
		slog.String("chapter", label),
		slog.Int("pages", len(pages)),
		slog.Duration("took", time.Since(started)),
	)

	return chapter, nil
}

// describedPages enumerates a count or list descriptor without probing.
func (resolver *Resolver) describedPages(seriesID, label string, descriptor library.ArchiveDescriptor) []Page {
	names, err := descriptor.FileNames()
	if err != nil {
		return nil
	}

	base := strings.TrimRight(descriptor.URL, "/")
	pages := make([]Page, 0, len(names))
	for i, name := range names {
		pages = append(pages, Page{
			Number:      i + 1,
			URL:         base + "/" + url.PathEscape(name),
			FallbackURL: resolver.backupURL(seriesID, label, name),
		})
	}
	return pages
}

// mirroredPages probes worker then backup for each page of a legacy archive.
func (resolver *Resolver) mirroredPages(context context.Context, seriesID, label string, descriptor library.ArchiveDescriptor) []Page {
	worker := resolver.layout.WorkerURL
	if worker == "" {
		worker = strings.TrimRight(descriptor.URL, "/")
	}

	var pages []Page
	for number := 1; number <= resolver.maxPages; number++ {
		name := library.PageName(number)
		candidates := []string{
			joinURL(worker, seriesID, label, name),
			resolver.backupURL(seriesID, label, name),
		}

		found := resolver.firstOf(context, candidates)
		if found == "" {
			break
		}

		page := Page{Number: number, URL: found}
		if found != candidates[1] {
			page.FallbackURL = candidates[1]
		}
		pages = append(pages, page)
	}
	return pages
}

// livePages probes the site, falling back to split parts for each page.
func (resolver *Resolver) livePages(context context.Context, seriesID, label string) []Page {
	var pages []Page
	for number := 1; number <= resolver.maxPages; number++ {
		found := resolver.probeNames(context, seriesID, label, number, "")
		if found != "" {
			pages = append(pages, Page{
				Number:      number,
				URL:         found,
				FallbackURL: resolver.backupURL(seriesID, label, library.PageName(number)),
			})
			continue
		}

		parts := resolver.liveParts(context, seriesID, label, number)
		if len(parts) == 0 {
			break
		}
		pages = append(pages, parts...)
	}
	return pages
}

func (resolver *Resolver) liveParts(context context.Context, seriesID, label string, number int) []Page {
	var parts []Page
	for part := 1; part <= resolver.maxParts; part++ {
		suffix := PartSuffix(part)
		found := resolver.probeNames(context, seriesID, label, number, suffix)
		if found == "" {
			break
		}
		parts = append(parts, Page{
			Number:      number,
			Part:        part,
			URL:         found,
			FallbackURL: resolver.backupURL(seriesID, label, padded(number)+suffix+constants.PageExt),
		})
	}
	return parts
}

// probeNames tries the zero-padded then the raw file name of a page.
func (resolver *Resolver) probeNames(context context.Context, seriesID, label string, number int, suffix string) string {
	names := []string{padded(number) + suffix + constants.PageExt}
	if raw := strconv.Itoa(number) + suffix + constants.PageExt; raw != names[0] {
		names = append(names, raw)
	}

	for _, name := range names {
		candidate := joinURL(resolver.layout.SiteURL, resolver.layout.ContentRoot, seriesID, label, name)
		if resolver.prober.Exists(context, candidate) {
			return candidate
		}
	}
	return ""
}

// firstOf probes every candidate concurrently and returns the earliest one
// in candidate order that exists.
func (resolver *Resolver) firstOf(context context.Context, candidates []string) string {
	hits := make([]bool, len(candidates))

	var group errgroup.Group
	for i, candidate := range candidates {
		if candidate == "" {
			continue
		}
		group.Go(func() error {
			hits[i] = resolver.prober.Exists(context, candidate)
			return nil
		})
	}
	_ = group.Wait()

	for i, hit := range hits {
		if hit {
			return candidates[i]
		}
	}
	return ""
}

func (resolver *Resolver) backupURL(seriesID, label, name string) string {
	if resolver.layout.BackupURL == "" {
		return ""
	}
	return joinURL(resolver.layout.BackupURL, seriesID, label, name)
}

// # Helpers

// PartSuffix names the n-th strip of a split page.
func PartSuffix(part int) string {
	return "_part" + strconv.Itoa(part)
}

func padded(number int) string {
	return strings.TrimSuffix(library.PageName(number), constants.PageExt)
}

// joinURL joins a base URL and escaped path segments. Empty base yields "".
func joinURL(base string, segments ...string) string {
	if base == "" {
		return ""
	}

	var builder strings.Builder
	builder.WriteString(base)
	for _, segment := range segments {
		if segment == "" {
			continue
		}
		builder.WriteByte('/')
		builder.WriteString(url.PathEscape(segment))
	}
	return builder.String()
}
