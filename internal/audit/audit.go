// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package audit records who changed the content store, what they changed and
when.

Entries are written to PostgreSQL when a database is configured and to the
structured log otherwise. Recording never blocks a mutation: callers log a
failed write and carry on.
*/
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/taibuivan/mangashelf/pkg/uuid"
)

// # Entry

// Entry is one audited mutation.
type Entry struct {
	ID         string         `json:"id"`
	ActorID    string         `json:"actor_id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Detail     map[string]any `json:"detail,omitempty"`
	IPAddress  string         `json:"ip_address,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Entity types.
const (
	EntitySeries  = "series"
	EntityChapter = "chapter"
	EntityJob     = "job"
)

// NewEntry stamps a fresh id and creation time.
func NewEntry(actorID, action, entityType, entityID string) Entry {
	return Entry{
		ID:         uuid.New(),
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		CreatedAt:  time.Now().UTC(),
	}
}

// # Recorders

// Recorder persists audit entries.
type Recorder interface {
	Record(context context.Context, entry Entry) error
}

// Reader lists recent audit entries, newest first.
type Reader interface {
	Recent(context context.Context, limit int) ([]Entry, error)
}

// LogRecorder writes entries to the structured log.
type LogRecorder struct {
	logger *slog.Logger
}

// NewLogRecorder builds a recorder on logger.
func NewLogRecorder(logger *slog.Logger) *LogRecorder {
	return &LogRecorder{logger: logger}
}

// Record logs the entry at info level.
func (recorder *LogRecorder) Record(context context.Context, entry Entry) error {
	recorder.logger.InfoContext(context, "audit_recorded",
		slog.String("audit_id", entry.ID),
		slog.String("actor_id", entry.ActorID),
		slog.String("action", entry.Action),
		slog.String("entity_type", entry.EntityType),
		slog.String("entity_id", entry.EntityID),
		slog.Any("detail", entry.Detail),
		slog.String("ip", entry.IPAddress),
	)
	return nil
}
