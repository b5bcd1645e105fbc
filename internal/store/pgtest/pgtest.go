// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package pgtest starts a migrated PostgreSQL container for integration tests.
package pgtest

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/holomush/gatehouse/internal/store"
)

// Start runs a postgres:16-alpine container, applies all migrations and
// returns a pool connected to it. cleanup closes the pool and terminates the
// container.
func Start(ctx context.Context) (pool *pgxpool.Pool, cleanup func(), err error) {
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("gatehouse_test"),
		postgres.WithUsername("gatehouse"),
		postgres.WithPassword("gatehouse"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, nil, oops.With("operation", "start postgres container").Wrap(err)
	}
	terminate := func() { _ = container.Terminate(ctx) }

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		terminate()
		return nil, nil, oops.With("operation", "get connection string").Wrap(err)
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		terminate()
		return nil, nil, err
	}
	upErr := migrator.Up()
	_ = migrator.Close()
	if upErr != nil {
		terminate()
		return nil, nil, upErr
	}

	pool, err = store.Open(ctx, connStr, 10)
	if err != nil {
		terminate()
		return nil, nil, err
	}
	return pool, func() {
		pool.Close()
		terminate()
	}, nil
}
