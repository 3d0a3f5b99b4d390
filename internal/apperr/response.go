// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package apperr

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/holomush/holoauth/pkg/errutil"
)

// Body is the JSON error response.
type Body struct {
	Error string `json:"error"`
}

// Render returns the status code and body for err. A nil error renders as an
// internal error so a caller bug never produces a 200 with an error body.
func Render(err error) (int, Body) {
	e := Classify(err)
	if e == nil {
		e = Internal(nil)
	}
	return e.Kind.Status(), Body{Error: e.PublicMessage()}
}

// Write classifies err, logs it at a severity matching its status and writes
// the JSON error response.
func Write(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, err error) *Error {
	e := Classify(err)
	if e == nil {
		e = Internal(nil)
	}
	status := e.Kind.Status()

	Log(ctx, logger, e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // client may have gone away; nothing useful to do
	json.NewEncoder(w).Encode(Body{Error: e.PublicMessage()})
	return e
}

// Log records e server-side. 5xx kinds are logged at ERROR with the full
// cause chain. Authentication and conflict failures are WARN; the remaining
// client errors are INFO.
func Log(ctx context.Context, logger *slog.Logger, e *Error) {
	if logger == nil || e == nil {
		return
	}
	status := e.Kind.Status()
	attrs := []any{"kind", e.Kind.String(), "status", status}

	if status >= http.StatusInternalServerError {
		errutil.LogError(ctx, logger, "request failed", e, attrs...)
		return
	}

	level := slog.LevelInfo
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusConflict:
		level = slog.LevelWarn
	}
	if e.cause != nil {
		attrs = append(attrs, "error", e.cause.Error())
	}
	logger.Log(ctx, level, "request rejected", attrs...)
}
