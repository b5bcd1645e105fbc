// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/gatehouse/internal/auth"
)

var _ auth.AccountRepository = (*AccountRepository)(nil)

// AccountRepository implements auth.AccountRepository on SQLite.
type AccountRepository struct {
	db *DB
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Get retrieves an account by id.
func (r *AccountRepository) Get(ctx context.Context, id string) (*auth.Account, error) {
	var (
		a       auth.Account
		created int64
	)
	err := r.db.conn(ctx).QueryRowContext(ctx, `
		SELECT account_id, password_hash, primary_character, created_at
		FROM accounts WHERE account_id = ?
	`, id).Scan(&a.ID, &a.PasswordHash, &a.PrimaryCharacter, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, oops.With("account_id", id).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").
			With("operation", "select account").
			With("account_id", id).
			Wrap(err)
	}
	a.CreatedAt = time.UnixMilli(created).UTC()
	return &a, nil
}

// Create stores a new account.
func (r *AccountRepository) Create(ctx context.Context, account *auth.Account) error {
	_, err := r.db.conn(ctx).ExecContext(ctx, `
		INSERT INTO accounts (account_id, password_hash, primary_character, created_at)
		VALUES (?, ?, ?, ?)
	`, account.ID, account.PasswordHash, account.PrimaryCharacter, account.CreatedAt.UnixMilli())
	if isUniqueViolation(err) {
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
