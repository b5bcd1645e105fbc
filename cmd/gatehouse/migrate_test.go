// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/gatehouse/pkg/errutil"
)

type fakeMigrator struct {
	version  uint
	dirty    bool
	pending  []uint
	upErr    error
	calls    []string
	forced   int
	closeErr error
}

func (f *fakeMigrator) Up() error {
	f.calls = append(f.calls, "up")
	if f.upErr != nil {
		return f.upErr
	}
	f.version = 2
	return nil
}

func (f *fakeMigrator) Down() error {
	f.calls = append(f.calls, "down")
	f.version = 0
	return nil
}

func (f *fakeMigrator) Version() (uint, bool, error) {
	return f.version, f.dirty, nil
}

func (f *fakeMigrator) Pending() ([]uint, error) {
	return f.pending, nil
}

func (f *fakeMigrator) Force(version int) error {
	f.calls = append(f.calls, "force")
	f.forced = version
	return nil
}

func (f *fakeMigrator) Close() error {
	f.calls = append(f.calls, "close")
	return f.closeErr
}

func useMigrator(t *testing.T, m *fakeMigrator) *string {
	t.Helper()
	var gotURL string
	orig := newMigrator
	newMigrator = func(databaseURL string) (migrator, error) {
		gotURL = databaseURL
		return m, nil
	}
	t.Cleanup(func() { newMigrator = orig })
	return &gotURL
}

const pgURL = "postgres://gatehouse@localhost/gatehouse"

func TestMigrate_Up(t *testing.T) {
	for _, args := range [][]string{{"migrate"}, {"migrate", "up"}} {
		m := &fakeMigrator{}
		gotURL := useMigrator(t, m)

		out, err := execute(t, append(args, "--database-url", pgURL)...)
		require.NoError(t, err)
		assert.Equal(t, pgURL, *gotURL)
		assert.Equal(t, []string{"up", "close"}, m.calls)
		assert.Contains(t, out, "version 2")
	}
}

func TestMigrate_UpFailure(t *testing.T) {
	m := &fakeMigrator{upErr: errors.New("syntax error")}
	useMigrator(t, m)

	_, err := execute(t, "migrate", "up", "--database-url", pgURL)
	require.Error(t, err)
	assert.Equal(t, []string{"up", "close"}, m.calls, "migrator is closed on failure")
}

func TestMigrate_CloseErrorReported(t *testing.T) {
	m := &fakeMigrator{closeErr: errors.New("close failed")}
	useMigrator(t, m)

	_, err := execute(t, "migrate", "down", "--database-url", pgURL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close failed")
}

func TestMigrate_Status(t *testing.T) {
	m := &fakeMigrator{version: 1, dirty: true, pending: []uint{2}}
	useMigrator(t, m)

	out, err := execute(t, "migrate", "status", "--database-url", pgURL)
	require.NoError(t, err)
	assert.Contains(t, out, "Current version: 1")
	assert.Contains(t, out, "DIRTY")
	assert.Contains(t, out, "Pending: [2]")

	m = &fakeMigrator{version: 2}
	useMigrator(t, m)
	out, err = execute(t, "migrate", "status", "--database-url", pgURL)
	require.NoError(t, err)
	assert.Contains(t, out, "Pending: none")
}

func TestMigrate_Force(t *testing.T) {
	m := &fakeMigrator{}
	useMigrator(t, m)

	_, err := execute(t, "migrate", "force", "1", "--database-url", pgURL)
	require.NoError(t, err)
	assert.Equal(t, 1, m.forced)

	_, err = execute(t, "migrate", "force", "one", "--database-url", pgURL)
	errutil.AssertErrorCode(t, err, "INVALID_VERSION")
}

func TestMigrate_SQLiteIsNoop(t *testing.T) {
	m := &fakeMigrator{}
	useMigrator(t, m)

	out, err := execute(t, "migrate", "--db-driver", "sqlite", "--database-url", "gatehouse.db")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to migrate")
	assert.Empty(t, m.calls)
}

func TestMigrate_RequiresDatabaseURL(t *testing.T) {
	useMigrator(t, &fakeMigrator{})

	_, err := execute(t, "migrate")
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}
