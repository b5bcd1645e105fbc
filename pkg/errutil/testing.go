// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrorCode fails t unless err carries code. Like Code, it compares the
// innermost code in the wrap chain, so a workflow error that wraps a
// validation error reports the validation code.
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err, "want error with code %s", code)
	if _, ok := oops.AsOops(err); !ok {
		require.Failf(t, "not a coded error", "%T: %v", err, err)
	}
	assert.Equal(t, code, Code(err), "error: %v", err)
}

// AssertErrorContext fails t unless err has key=value in its merged oops
// context (e.g. "account_id", "name").
func AssertErrorContext(t *testing.T, err error, key string, value any) {
	t.Helper()
	require.Error(t, err, "want error with %s=%v", key, value)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "not a coded error: %T", err)

	got, found := oopsErr.Context()[key]
	require.True(t, found, "error has no %q context: %v", key, err)
	assert.Equal(t, value, got, "context %q", key)
}
