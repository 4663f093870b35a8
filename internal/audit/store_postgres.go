// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/mangashelf/internal/platform/database/schema"
	"github.com/taibuivan/mangashelf/internal/platform/dberr"
)

// PostgresStore keeps audit entries in system.auditlog.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a store on an open pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Record inserts entry.
func (store *PostgresStore) Record(context context.Context, entry Entry) error {
	detail, err := json.Marshal(entry.Detail)
	if err != nil {
		return fmt.Errorf("audit: encode detail: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		schema.SystemAuditLog.Table,
		schema.SystemAuditLog.ID, schema.SystemAuditLog.ActorID, schema.SystemAuditLog.Action,
		schema.SystemAuditLog.EntityType, schema.SystemAuditLog.EntityID, schema.SystemAuditLog.Detail,
		schema.SystemAuditLog.IPAddress, schema.SystemAuditLog.CreatedAt,
	)

	_, err = store.db.Exec(context, query,
		entry.ID, entry.ActorID, entry.Action, entry.EntityType, entry.EntityID, detail, entry.IPAddress, entry.CreatedAt,
	)
	return dberr.Wrap(err, "insert_audit_entry")
}

// Recent returns the latest limit entries, newest first.
func (store *PostgresStore) Recent(context context.Context, limit int) ([]Entry, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
		ORDER BY %s DESC
		LIMIT $1
	`,
		schema.SystemAuditLog.ID, schema.SystemAuditLog.ActorID, schema.SystemAuditLog.Action,
		schema.SystemAuditLog.EntityType, schema.SystemAuditLog.EntityID, schema.SystemAuditLog.Detail,
		schema.SystemAuditLog.IPAddress, schema.SystemAuditLog.CreatedAt,
		schema.SystemAuditLog.Table, schema.SystemAuditLog.CreatedAt,
	)

	rows, err := store.db.Query(context, query, limit)
	if err != nil {
		return nil, dberr.Wrap(err, "list_audit_entries")
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var entry Entry
		var detail []byte
		if err := rows.Scan(&entry.ID, &entry.ActorID, &entry.Action, &entry.EntityType, &entry.EntityID, &detail, &entry.IPAddress, &entry.CreatedAt); err != nil {
			return nil, dberr.Wrap(err, "scan_audit_entry")
		}
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &entry.Detail); err != nil {
				return nil, fmt.Errorf("audit: decode detail: %w", err)
			}
		}
		entries = append(entries, entry)
	}

	return entries, dberr.Wrap(rows.Err(), "iterate_audit_entries")
}
