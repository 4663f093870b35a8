// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package admin

import (
	"context"
	"path"
	"strings"

	"github.com/taibuivan/mangashelf/internal/contentstore"
	"github.com/taibuivan/mangashelf/internal/library"
	"github.com/taibuivan/mangashelf/pkg/natsort"
	"github.com/taibuivan/mangashelf/pkg/slice"
)

var imageExtensions = map[string]bool{".webp": true, ".jpg": true, ".png": true}

// Image is one stored page of a chapter.
type Image struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Archived bool   `json:"archived"`
}

/*
ListChapterImages lists the stored images of a chapter in natural order.

Description: Live chapters are read from the content directory, keeping only
webp, jpg and png files. Archived chapters are enumerated from their
descriptor; legacy descriptors cannot be listed.

Returns:
  - []Image: Names and URLs
  - error: NOT_FOUND, UNSUPPORTED_ARCHIVE for legacy descriptors, store errors
*/
func (service *Service) ListChapterImages(context context.Context, seriesID, chapter string) ([]Image, error) {
	if err := validateTarget(seriesID, chapter); err != nil {
		return nil, err
	}

	series, err := service.series(context, seriesID)
	if err != nil {
		return nil, err
	}

	service.state.SetCurrentSeries(seriesID)
	service.state.SetCurrentChapter(chapter)

	var images []Image
	if descriptor, ok := series.Archive(chapter); ok {
		images, err = archivedImages(descriptor)
	} else {
		images, err = service.liveImages(context, seriesID, chapter)
	}
	if err != nil {
		return nil, err
	}

	natsort.SortBy(images, func(image Image) string { return image.Name })
	return images, nil
}

func archivedImages(descriptor library.ArchiveDescriptor) ([]Image, error) {
	names, err := descriptor.FileNames()
	if err != nil {
		return nil, err
	}

	base := strings.TrimRight(descriptor.URL, "/")
	return slice.Map(names, func(name string) Image {
		return Image{Name: name, URL: base + "/" + name, Archived: true}
	}), nil
}

func (service *Service) liveImages(context context.Context, seriesID, chapter string) ([]Image, error) {
	entries, err := service.store.ListDir(context, service.chapterPath(seriesID, chapter))
	if err != nil {
		return nil, err
	}

	files := slice.Filter(entries, func(entry contentstore.Entry) bool {
		return entry.IsFile() && imageExtensions[strings.ToLower(path.Ext(entry.Name))]
	})
	return slice.Map(files, func(entry contentstore.Entry) Image {
		return Image{Name: entry.Name, URL: entry.DownloadURL}
	}), nil
}
