// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package audit

import (
	"context"
	"errors"
	"sync"
)

// MemoryStore keeps the newest entries in process when no database is configured.
type MemoryStore struct {
	mu       sync.Mutex
	entries  []Entry
	capacity int
}

// NewMemoryStore keeps at most capacity entries.
func NewMemoryStore(capacity int) *MemoryStore {
	return &MemoryStore{capacity: capacity}
}

// Record appends entry, dropping the oldest beyond capacity.
func (store *MemoryStore) Record(_ context.Context, entry Entry) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.entries = append(store.entries, entry)
	if overflow := len(store.entries) - store.capacity; overflow > 0 {
		store.entries = append([]Entry(nil), store.entries[overflow:]...)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (store *MemoryStore) Recent(_ context.Context, limit int) ([]Entry, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	count := min(limit, len(store.entries))
	recent := make([]Entry, 0, count)
	for i := len(store.entries) - 1; i >= 0 && len(recent) < count; i-- {
		recent = append(recent, store.entries[i])
	}
	return recent, nil
}

// Tee records to every recorder and joins their failures.
func Tee(recorders ...Recorder) Recorder {
	return tee(recorders)
}

type tee []Recorder

func (recorders tee) Record(context context.Context, entry Entry) error {
	var errs []error
	for _, recorder := range recorders {
		if err := recorder.Record(context, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
