// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package apperr_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/holoauth/internal/apperr"
)

func newJSONLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestWrite_WritesJSONBody(t *testing.T) {
	var logs bytes.Buffer
	rec := httptest.NewRecorder()

	got := apperr.Write(context.Background(), rec, newJSONLogger(&logs), apperr.NotFound("User not found"))

	require.NotNil(t, got)
	assert.Equal(t, apperr.KindNotFound, got.Kind)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"error": "User not found"}, body)
}

func TestWrite_ServerErrorsLoggedWithDetail(t *testing.T) {
	var logs bytes.Buffer
	rec := httptest.NewRecorder()

	cause := oops.Code("AUTH_INVALID_HASH").With("segment", 3).Errorf("invalid hash format")
	apperr.Write(context.Background(), rec, newJSONLogger(&logs), apperr.Hashing(cause))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "invalid hash format")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(logs.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "hashing_internal", entry["kind"])
	assert.Equal(t, "AUTH_INVALID_HASH", entry["code"])
	assert.Contains(t, entry["error"], "invalid hash format")
}

func TestWrite_ClientErrorSeverity(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantLevel string
	}{
		{"unauthorized is warn", apperr.Unauthorized(), "WARN"},
		{"auth failed is warn", apperr.AuthFailed("unknown user"), "WARN"},
		{"forbidden is warn", apperr.Forbidden(), "WARN"},
		{"conflict is warn", apperr.Conflict("taken"), "WARN"},
		{"validation is info", apperr.Validation(apperr.FieldError{Field: "email", Message: "bad"}), "INFO"},
		{"not found is info", apperr.NotFound("gone"), "INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			apperr.Write(context.Background(), httptest.NewRecorder(), newJSONLogger(&logs), tt.err)

			var entry map[string]any
			require.NoError(t, json.Unmarshal(logs.Bytes(), &entry))
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.NotContains(t, entry, "stacktrace")
		})
	}
}

func TestWrite_AuthFailedReasonOnlyInLogs(t *testing.T) {
	var logs bytes.Buffer
	rec := httptest.NewRecorder()

	apperr.Write(context.Background(), rec, newJSONLogger(&logs), apperr.AuthFailed("no such user: alice"))

	assert.NotContains(t, rec.Body.String(), "alice")
	assert.Contains(t, logs.String(), "no such user: alice")
}

func TestWrite_UnclassifiedErrorIsInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	got := apperr.Write(context.Background(), rec, nil, errors.New("boom"))

	assert.Equal(t, apperr.KindInternal, got.Kind)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}
