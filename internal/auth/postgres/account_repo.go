// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package postgres implements auth repositories on PostgreSQL.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/holomush/gatehouse/internal/auth"
	"github.com/holomush/gatehouse/internal/store"
)

// Compile-time interface check.
var _ auth.AccountRepository = (*AccountRepository)(nil)

// AccountRepository implements auth.AccountRepository using PostgreSQL.
// Calls made with a context from store.Transactor run inside its transaction.
type AccountRepository struct {
	pool store.Querier
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool store.Querier) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Get retrieves an account by id.
func (r *AccountRepository) Get(ctx context.Context, id string) (*auth.Account, error) {
	var a auth.Account
	err := store.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT account_id, password_hash, primary_character, created_at
		FROM accounts
		WHERE account_id = $1
	`, id).Scan(&a.ID, &a.PasswordHash, &a.PrimaryCharacter, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("account_id", id).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").
			With("operation", "select account").
			With("account_id", id).
			Wrap(err)
	}
	return &a, nil
}

// Create stores a new account.
func (r *AccountRepository) Create(ctx context.Context, account *auth.Account) error {
	_, err := store.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO accounts (account_id, password_hash, primary_character, created_at)
		VALUES ($1, $2, $3, $4)
	`, account.ID, account.PasswordHash, account.PrimaryCharacter, account.CreatedAt)
	if store.IsUniqueViolation(err) {
		return oops.With("account_id", account.ID).Wrap(auth.ErrDuplicateKey)
	}
	if err != nil {
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account").
			With("account_id", account.ID).
			Wrap(err)
	}
	return nil
}
