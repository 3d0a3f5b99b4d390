// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package apperr

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Classify collapses err into exactly one Error.
//
// An *Error anywhere in the chain wins. PostgreSQL failures are split into
// unique violations, foreign-key violations and everything else. Any other
// error is internal. Classify returns nil for a nil error.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return &Error{Kind: KindStorageConflict, Message: pgErr.Message, cause: err}
		case pgerrcode.ForeignKeyViolation:
			return &Error{Kind: KindStorageConstraint, Message: pgErr.Message, cause: err}
		default:
			return &Error{Kind: KindStorageOther, cause: err}
		}
	}

	if isStorageError(err) {
		return &Error{Kind: KindStorageOther, cause: err}
	}

	return Internal(err)
}

func isStorageError(err error) bool {
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, pgx.ErrTxClosed) {
		return true
	}
	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr)
}
