// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package admin

import (
	"sync"
	"time"

	"github.com/taibuivan/mangashelf/internal/library"
)

// Mutation describes the last successful admin change.
type Mutation struct {
	Command  string    `json:"command"`
	Target   string    `json:"target"`
	Revision string    `json:"revision,omitempty"`
	At       time.Time `json:"at"`
}

// State is the admin console's view of the store: the manifest as last
// fetched, the series and chapter being worked on, and the last mutation.
// It is only replaced through its setters, after a successful re-fetch.
type State struct {
	mu             sync.RWMutex
	manifest       library.Manifest
	loaded         bool
	currentSeries  string
	currentChapter string
	lastMutation   *Mutation
}

// NewState returns an empty, unloaded state.
func NewState() *State {
	return &State{}
}

// SetManifest replaces the cached manifest.
func (state *State) SetManifest(manifest library.Manifest) {
	state.mu.Lock()
	defer state.mu.Unlock()
	state.manifest = manifest
	state.loaded = true
}

// Manifest returns a copy of the cached manifest and whether one was loaded.
func (state *State) Manifest() (library.Manifest, bool) {
	state.mu.RLock()
	defer state.mu.RUnlock()
	return append(library.Manifest(nil), state.manifest...), state.loaded
}

// SetCurrentSeries selects a series and clears the chapter selection.
func (state *State) SetCurrentSeries(id string) {
	state.mu.Lock()
	defer state.mu.Unlock()
	if state.currentSeries != id {
		state.currentChapter = ""
	}
	state.currentSeries = id
}

// SetCurrentChapter selects a chapter of the current series.
func (state *State) SetCurrentChapter(label string) {
	state.mu.Lock()
	defer state.mu.Unlock()
	state.currentChapter = label
}

// Current returns the selected series and chapter.
func (state *State) Current() (seriesID, chapter string) {
	state.mu.RLock()
	defer state.mu.RUnlock()
	return state.currentSeries, state.currentChapter
}

// RecordMutation remembers a successful change.
func (state *State) RecordMutation(mutation Mutation) {
	state.mu.Lock()
	defer state.mu.Unlock()
	state.lastMutation = &mutation
}

// LastMutation returns the last successful change, or nil.
func (state *State) LastMutation() *Mutation {
	state.mu.RLock()
	defer state.mu.RUnlock()
	if state.lastMutation == nil {
		return nil
	}
	mutation := *state.lastMutation
	return &mutation
}
