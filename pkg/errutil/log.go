// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package errutil holds helpers for logging and asserting on structured errors.
package errutil

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs err at ERROR with structured context.
// The full error chain is always logged. When the chain contains an oops
// error its code, context and stacktrace are added as attributes.
// Extra key/value attrs are appended before the error details.
func LogError(ctx context.Context, logger *slog.Logger, msg string, err error, attrs ...any) {
	if err == nil {
		logger.ErrorContext(ctx, msg, attrs...)
		return
	}
	attrs = append(attrs, "error", err.Error())
	if oopsErr, ok := oops.AsOops(err); ok {
		if code := oopsErr.Code(); code != nil && code != "" {
			attrs = append(attrs, "code", code)
		}
		if octx := oopsErr.Context(); len(octx) > 0 {
			attrs = append(attrs, "context", octx)
		}
		if st := oopsErr.Stacktrace(); st != "" {
			attrs = append(attrs, "stacktrace", st)
		}
	}
	logger.ErrorContext(ctx, msg, attrs...)
}
