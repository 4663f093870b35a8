// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package library models the manifest document that lists every series and its
chapters, and keeps a fetched, cached copy of it for readers and admins.

Chapter labels are kept in natural order (1, 2, 10). A chapter is either live,
with its pages under the content root of the store, or archived, in which case
its series carries an [ArchiveDescriptor] for it in ChapterRoots.
*/
package library

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/taibuivan/mangashelf/internal/platform/apperr"
	"github.com/taibuivan/mangashelf/internal/platform/constants"
	"github.com/taibuivan/mangashelf/pkg/natsort"
)

// # Series

// Series is one entry of the manifest.
type Series struct {
	ID           string                       `json:"id"`
	Title        string                       `json:"title"`
	Cover        string                       `json:"cover"`
	Chapters     []string                     `json:"chapters"`
	ChapterRoots map[string]ArchiveDescriptor `json:"chapter_roots"`
}

// NewSeries returns an empty series titled after its id.
func NewSeries(id string) Series {
	return Series{ID: id, Title: id, Chapters: []string{}, ChapterRoots: map[string]ArchiveDescriptor{}}
}

// DisplayTitle returns the title, or the id of an untitled series.
func (series *Series) DisplayTitle() string {
	if series.Title == "" {
		return series.ID
	}
	return series.Title
}

// HasChapter reports whether label is listed.
func (series *Series) HasChapter(label string) bool {
	return slices.Contains(series.Chapters, label)
}

// Archive returns the descriptor of an archived chapter.
func (series *Series) Archive(label string) (ArchiveDescriptor, bool) {
	descriptor, ok := series.ChapterRoots[label]
	return descriptor, ok
}

// IsArchived reports whether label lives on an archive mirror.
func (series *Series) IsArchived(label string) bool {
	_, ok := series.ChapterRoots[label]
	return ok
}

// AddChapter inserts label keeping natural order. It reports false when the
// label was already present.
func (series *Series) AddChapter(label string) bool {
	if series.HasChapter(label) {
		return false
	}
	series.Chapters = append(series.Chapters, label)
	natsort.Sort(series.Chapters)
	return true
}

// SortedChapters returns the labels in natural order, ascending or descending.
func (series *Series) SortedChapters(descending bool) []string {
	labels := natsort.Sorted(series.Chapters)
	if descending {
		slices.Reverse(labels)
	}
	return labels
}

// Neighbors returns the previous and next chapter labels in natural order.
// Either is empty at the ends of the list.
func (series *Series) Neighbors(label string) (prev, next string) {
	labels := natsort.Sorted(series.Chapters)
	index := slices.Index(labels, label)
	if index < 0 {
		return "", ""
	}
	if index > 0 {
		prev = labels[index-1]
	}
	if index < len(labels)-1 {
		next = labels[index+1]
	}
	return prev, next
}

// Validate reports archive roots whose label is not a listed chapter.
func (series *Series) Validate() error {
	var orphans []string
	for label := range series.ChapterRoots {
		if !series.HasChapter(label) {
			orphans = append(orphans, label)
		}
	}
	if len(orphans) == 0 {
		return nil
	}

	natsort.Sort(orphans)
	return fmt.Errorf("library: series %q has archive roots for unlisted chapters %v", series.ID, orphans)
}

// # Archive Descriptor

// ArchiveMode selects how the pages of an archived chapter are enumerated.
type ArchiveMode string

const (
	// ModeLegacy descriptors are a bare base URL; pages must be probed.
	ModeLegacy ArchiveMode = ""
	// ModeCount pages are 01.webp through NN.webp.
	ModeCount ArchiveMode = "count"
	// ModeList pages are an explicit ordered file list.
	ModeList ArchiveMode = "list"
)

// ArchiveDescriptor locates an archived chapter on a mirror.
type ArchiveDescriptor struct {
	URL   string
	Mode  ArchiveMode
	Count int
	Files []string
}

// IsLegacy reports whether the descriptor is the bare-URL form.
func (descriptor ArchiveDescriptor) IsLegacy() bool {
	return descriptor.Mode == ModeLegacy
}

// FileNames enumerates page file names for structured descriptors.
func (descriptor ArchiveDescriptor) FileNames() ([]string, error) {
	switch descriptor.Mode {
	case ModeCount:
		names := make([]string, descriptor.Count)
		for i := range names {
			names[i] = PageName(i + 1)
		}
		return names, nil
	case ModeList:
		return slices.Clone(descriptor.Files), nil
	default:
		return nil, apperr.Unsupported("Archived chapter uses the legacy format and cannot be listed")
	}
}

type descriptorJSON struct {
	URL  string          `json:"url"`
	Mode ArchiveMode     `json:"mode"`
	Data json.RawMessage `json:"data"`
}

// UnmarshalJSON accepts a bare URL string or a {url, mode, data} object.
func (descriptor *ArchiveDescriptor) UnmarshalJSON(data []byte) error {
	var legacy string
	if err := json.Unmarshal(data, &legacy); err == nil {
		*descriptor = ArchiveDescriptor{URL: legacy}
		return nil
	}

	var raw descriptorJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("library: archive descriptor: %w", err)
	}

	out := ArchiveDescriptor{URL: raw.URL, Mode: raw.Mode}
	switch raw.Mode {
	case ModeCount:
		if err := json.Unmarshal(raw.Data, &out.Count); err != nil {
			return fmt.Errorf("library: archive descriptor count: %w", err)
		}
		if out.Count < 0 {
			return fmt.Errorf("library: archive descriptor count %d is negative", out.Count)
		}
	case ModeList:
		if err := json.Unmarshal(raw.Data, &out.Files); err != nil {
			return fmt.Errorf("library: archive descriptor list: %w", err)
		}
	case ModeLegacy:
		// An object without a mode behaves like the bare form.
	default:
		return fmt.Errorf("library: unknown archive mode %q", raw.Mode)
	}

	*descriptor = out
	return nil
}

// MarshalJSON writes the descriptor back in the form it was read.
func (descriptor ArchiveDescriptor) MarshalJSON() ([]byte, error) {
	switch descriptor.Mode {
	case ModeCount:
		return json.Marshal(map[string]any{"url": descriptor.URL, "mode": descriptor.Mode, "data": descriptor.Count})
	case ModeList:
		files := descriptor.Files
		if files == nil {
			files = []string{}
		}
		return json.Marshal(map[string]any{"url": descriptor.URL, "mode": descriptor.Mode, "data": files})
	default:
		return json.Marshal(descriptor.URL)
	}
}

// PageName returns the zero-padded file name of a page.
func PageName(number int) string {
	return fmt.Sprintf("%02d%s", number, constants.PageExt)
}
