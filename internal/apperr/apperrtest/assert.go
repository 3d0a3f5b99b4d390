// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package apperrtest provides test helpers for the error taxonomy.
package apperrtest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/holoauth/internal/apperr"
)

// AssertKind asserts that err carries an *apperr.Error of the given kind.
func AssertKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr), "expected *apperr.Error, got %T: %v", err, err)
	assert.Equal(t, kind, appErr.Kind, "unexpected kind for %v", err)
}

// AssertClassifiedKind asserts that err classifies as kind, including raw
// storage errors that have not been wrapped in an *apperr.Error yet.
func AssertClassifiedKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	got := apperr.Classify(err)
	require.NotNil(t, got)
	assert.Equal(t, kind, got.Kind, "unexpected classification for %v", err)
}
