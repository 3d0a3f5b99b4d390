// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil_test

import (
	"errors"
	"testing"

	"github.com/samber/oops"

	"github.com/holomush/holoauth/pkg/errutil"
)

var errSentinel = errors.New("sentinel")

func TestAssertErrorCode_InnermostCodeWins(t *testing.T) {
	inner := oops.Code("USER_SCAN_FAILED").Errorf("scan")
	err := oops.Code("USER_GET_FAILED").Wrap(inner)
	errutil.AssertErrorCode(t, err, "USER_SCAN_FAILED")
}

func TestAssertCodedSentinel(t *testing.T) {
	err := oops.Code("USER_NOT_FOUND").With("id", "42").Wrap(errSentinel)
	errutil.AssertCodedSentinel(t, err, "USER_NOT_FOUND", errSentinel)
}

func TestAssertErrorContext_MatchingKeyValue(t *testing.T) {
	err := oops.With("user_id", "123").Errorf("test error")
	errutil.AssertErrorContext(t, err, "user_id", "123")
}
