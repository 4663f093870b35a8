// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr maps PostgreSQL errors onto [apperr.AppError] values.
package dberr

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/mangashelf/internal/platform/apperr"
)

var (
	// ErrNotFound is a standard error returned when a queried row doesn't exist.
	ErrNotFound = apperr.NotFound("Resource")
)

// Wrap classifies a database error. Missing rows become NOT_FOUND, unique
// violations CONFLICT, and everything else an internal error annotated with
// action. The SQL detail stays in the cause.
func Wrap(err error, action string) error {
	if err == nil {
		return nil
	}

	// 1. Not Found mapping
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	// 2. Constraint violations
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		conflict := apperr.Conflict("Duplicate " + pgErr.TableName + " entry")
		conflict.Cause = err
		return conflict
	}

	return apperr.Internal(fmt.Errorf("%s: %w", action, err))
}
