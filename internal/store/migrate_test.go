// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"errors"
	"regexp"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/gatehouse/pkg/errutil"
)

// mockMigrate implements migrateIface for testing.
type mockMigrate struct {
	upErr          error
	downErr        error
	stepsErr       error
	versionVal     uint
	versionErr     error
	dirty          bool
	forceErr       error
	closeSourceErr error
	closeDbErr     error
}

func (m *mockMigrate) Up() error                    { return m.upErr }
func (m *mockMigrate) Down() error                  { return m.downErr }
func (m *mockMigrate) Steps(_ int) error            { return m.stepsErr }
func (m *mockMigrate) Version() (uint, bool, error) { return m.versionVal, m.dirty, m.versionErr }
func (m *mockMigrate) Force(_ int) error            { return m.forceErr }
func (m *mockMigrate) Close() (error, error)        { return m.closeSourceErr, m.closeDbErr }

func TestNewMigrator_InvalidURL(t *testing.T) {
	_, err := NewMigrator("badscheme://localhost:5432/testdb")
	errutil.AssertErrorCode(t, err, "MIGRATION_INIT_FAILED")
}

func TestMigrateURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"postgres://u:p@db:5432/gate", "pgx5://u:p@db:5432/gate"},
		{"postgresql://db/gate?sslmode=disable", "pgx5://db/gate?sslmode=disable"},
		{"pgx5://db/gate", "pgx5://db/gate"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, migrateURL(tt.in))
		})
	}
}

func TestMigrator_Operations(t *testing.T) {
	tests := []struct {
		name     string
		mock     *mockMigrate
		run      func(m *Migrator) error
		wantCode string
	}{
		{name: "up", mock: &mockMigrate{}, run: (*Migrator).Up},
		{name: "up no change", mock: &mockMigrate{upErr: migrate.ErrNoChange}, run: (*Migrator).Up},
		{name: "up failure", mock: &mockMigrate{upErr: errors.New("database locked")}, run: (*Migrator).Up, wantCode: "MIGRATION_UP_FAILED"},
		{name: "down no change", mock: &mockMigrate{downErr: migrate.ErrNoChange}, run: (*Migrator).Down},
		{name: "down failure", mock: &mockMigrate{downErr: errors.New("constraint violation")}, run: (*Migrator).Down, wantCode: "MIGRATION_DOWN_FAILED"},
		{
			name:     "steps failure",
			mock:     &mockMigrate{stepsErr: errors.New("invalid step")},
			run:      func(m *Migrator) error { return m.Steps(-1) },
			wantCode: "MIGRATION_STEPS_FAILED",
		},
		{
			name:     "force negative",
			mock:     &mockMigrate{},
			run:      func(m *Migrator) error { return m.Force(-1) },
			wantCode: "INVALID_VERSION",
		},
		{
			name:     "force failure",
			mock:     &mockMigrate{forceErr: errors.New("no such version")},
			run:      func(m *Migrator) error { return m.Force(2) },
			wantCode: "MIGRATION_FORCE_FAILED",
		},
		{
			name:     "close failure keeps both errors",
			mock:     &mockMigrate{closeSourceErr: errors.New("source"), closeDbErr: errors.New("database")},
			run:      (*Migrator).Close,
			wantCode: "MIGRATION_CLOSE_FAILED",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run(&Migrator{m: tt.mock})
			if tt.wantCode == "" {
				require.NoError(t, err)
				return
			}
			errutil.AssertErrorCode(t, err, tt.wantCode)
		})
	}
}

func TestMigrator_Version(t *testing.T) {
	t.Run("nil version is zero", func(t *testing.T) {
		m := &Migrator{m: &mockMigrate{versionErr: migrate.ErrNilVersion}}
		version, dirty, err := m.Version()
		require.NoError(t, err)
		assert.Equal(t, uint(0), version)
		assert.False(t, dirty)
	})

	t.Run("dirty flag passes through", func(t *testing.T) {
		m := &Migrator{m: &mockMigrate{versionVal: 1, dirty: true}}
		version, dirty, err := m.Version()
		require.NoError(t, err)
		assert.Equal(t, uint(1), version)
		assert.True(t, dirty)
	})

	t.Run("failure", func(t *testing.T) {
		m := &Migrator{m: &mockMigrate{versionErr: errors.New("connection lost")}}
		_, _, err := m.Version()
		errutil.AssertErrorCode(t, err, "MIGRATION_VERSION_FAILED")
	})
}

func TestMigrator_Pending(t *testing.T) {
	all, err := MigrationVersions()
	require.NoError(t, err)
	require.NotEmpty(t, all)

	m := &Migrator{m: &mockMigrate{versionErr: migrate.ErrNilVersion}}
	pending, err := m.Pending()
	require.NoError(t, err)
	assert.Equal(t, all, pending)

	m = &Migrator{m: &mockMigrate{versionVal: all[len(all)-1]}}
	pending, err = m.Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestMigrationsFS_EmbeddedFiles(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)

	names := make(map[string]bool)
	pattern := regexp.MustCompile(`^\d{6}_\w+\.(up|down)\.sql$`)
	for _, entry := range entries {
		names[entry.Name()] = true
		assert.True(t, pattern.MatchString(entry.Name()),
			"file %s should match pattern NNNNNN_name.(up|down).sql", entry.Name())
	}

	for _, expected := range []string{
		"000001_accounts.up.sql",
		"000001_accounts.down.sql",
		"000002_characters.up.sql",
		"000002_characters.down.sql",
	} {
		assert.True(t, names[expected], "should contain %s", expected)
	}

	versions, err := MigrationVersions()
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2}, versions)
}
