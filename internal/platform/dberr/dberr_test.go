// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dberr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/mangashelf/internal/platform/apperr"
	"github.com/taibuivan/mangashelf/internal/platform/dberr"
)

/*
TestWrap verifies database errors are classified by kind.
*/
func TestWrap(t *testing.T) {
	duplicate := &pgconn.PgError{Code: pgerrcode.UniqueViolation, TableName: "auditlog"}

	tests := []struct {
		name string
		err  error
		code string
	}{
		{name: "NoRows", err: pgx.ErrNoRows, code: apperr.CodeNotFound},
		{name: "WrappedNoRows", err: fmt.Errorf("scan: %w", pgx.ErrNoRows), code: apperr.CodeNotFound},
		{name: "UniqueViolation", err: duplicate, code: apperr.CodeConflict},
		{name: "Other", err: errors.New("connection reset"), code: apperr.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, apperr.HasCode(dberr.Wrap(tt.err, "insert_audit_entry"), tt.code))
		})
	}

	assert.NoError(t, dberr.Wrap(nil, "noop"))
	assert.ErrorIs(t, dberr.Wrap(duplicate, "insert_audit_entry"), duplicate)
}
