// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/samber/oops"

	"github.com/holomush/gatehouse/internal/auth"
	authpg "github.com/holomush/gatehouse/internal/auth/postgres"
	"github.com/holomush/gatehouse/internal/character"
	charpg "github.com/holomush/gatehouse/internal/character/postgres"
	"github.com/holomush/gatehouse/internal/config"
	"github.com/holomush/gatehouse/internal/store"
	"github.com/holomush/gatehouse/internal/store/sqlite"
	"github.com/holomush/gatehouse/internal/xdg"
)

// Backend bundles the repositories of one store driver.
type Backend struct {
	Accounts   auth.AccountRepository
	Characters character.Repository
	Transactor auth.Transactor
	Ping       func(ctx context.Context) error
	Close      func()
}

// openBackend connects the store selected by db.Driver.
func openBackend(ctx context.Context, db config.DatabaseConfig) (*Backend, error) {
	switch db.Driver {
	case config.DriverSQLite:
		if db.URL != sqlite.MemoryDSN && !strings.HasPrefix(db.URL, "file:") {
			if err := xdg.EnsureDir(filepath.Dir(db.URL)); err != nil {
				return nil, err
			}
		}
		sdb, err := sqlite.Open(ctx, db.URL)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Accounts:   sqlite.NewAccountRepository(sdb),
			Characters: sqlite.NewCharacterRepository(sdb),
			Transactor: sqlite.NewTransactor(sdb),
			Ping:       sdb.Ping,
			Close:      func() { _ = sdb.Close() },
		}, nil
	case config.DriverPostgres:
		pool, err := store.Open(ctx, db.URL, db.MaxConns)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Accounts:   authpg.NewAccountRepository(pool),
			Characters: charpg.NewCharacterRepository(pool),
			Transactor: store.NewTransactor(pool),
			Ping:       pool.Ping,
			Close:      pool.Close,
		}, nil
	default:
		return nil, oops.Code("CONFIG_INVALID").
			With("driver", db.Driver).
			Errorf("unsupported database driver %q", db.Driver)
	}
}
