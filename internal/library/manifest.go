// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package library

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/taibuivan/mangashelf/internal/platform/constants"
	"github.com/taibuivan/mangashelf/pkg/slice"
)

// ErrNotManifest is returned when a document is not a JSON array of series.
var ErrNotManifest = errors.New("library: document is not a series manifest")

// # Manifest

// Manifest is the ordered list of series.
type Manifest []Series

// Parse decodes a manifest and rejects documents that are not shaped like one.
func Parse(data []byte) (Manifest, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrNotManifest
	}

	var manifest Manifest
	if err := json.Unmarshal(trimmed, &manifest); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotManifest, err)
	}

	for i := range manifest {
		if manifest[i].ID == "" {
			return nil, fmt.Errorf("%w: entry %d has no id", ErrNotManifest, i)
		}
		manifest[i].normalize()
	}

	return manifest, nil
}

// Encode writes the manifest with two-space indentation.
func (manifest Manifest) Encode() ([]byte, error) {
	if manifest == nil {
		manifest = Manifest{}
	}
	return json.MarshalIndent(manifest, "", "  ")
}

// Find returns the series with id.
func (manifest Manifest) Find(id string) (*Series, bool) {
	for i := range manifest {
		if manifest[i].ID == id {
			return &manifest[i], true
		}
	}
	return nil, false
}

// Upsert returns the series with id, appending an empty one when absent.
func (manifest *Manifest) Upsert(id string) *Series {
	if series, ok := manifest.Find(id); ok {
		return series
	}
	*manifest = append(*manifest, NewSeries(id))
	return &(*manifest)[len(*manifest)-1]
}

// Remove drops the series with id and reports whether it was present.
func (manifest *Manifest) Remove(id string) bool {
	for i := range *manifest {
		if (*manifest)[i].ID == id {
			*manifest = append((*manifest)[:i], (*manifest)[i+1:]...)
			return true
		}
	}
	return false
}

// # Statistics

// Stats summarizes the manifest for the admin dashboard.
type Stats struct {
	Series   int      `json:"series"`
	Chapters int      `json:"chapters"`
	Archived int      `json:"archived"`
	Local    int      `json:"local"`
	Capacity int      `json:"capacity"`
	Full     bool     `json:"full"`
	Recent   []Series `json:"recent"`
}

// Stats counts series and chapters. Local is chapters that are not archived.
func (manifest Manifest) Stats() Stats {
	chapters := slice.Reduce(manifest, 0, func(total int, series Series) int { return total + len(series.Chapters) })
	archived := slice.Reduce(manifest, 0, func(total int, series Series) int { return total + len(series.ChapterRoots) })

	recent := manifest
	if len(recent) > constants.RecentSeriesCount {
		recent = recent[:constants.RecentSeriesCount]
	}

	local := chapters - archived
	return Stats{
		Series:   len(manifest),
		Chapters: chapters,
		Archived: archived,
		Local:    local,
		Capacity: constants.LocalCapacity,
		Full:     local >= constants.LocalCapacity,
		Recent:   append([]Series{}, recent...),
	}
}

func (series *Series) normalize() {
	if series.Chapters == nil {
		series.Chapters = []string{}
	}
	if series.ChapterRoots == nil {
		series.ChapterRoots = map[string]ArchiveDescriptor{}
	}
}
