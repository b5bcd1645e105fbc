// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"time"

	"github.com/samber/oops"
)

// Input limits.
const (
	MaxAccountIDLength = 64

	// MaxPasswordBytes is the bcrypt input limit.
	MaxPasswordBytes = 72
)

// Account is a login identity. PrimaryCharacter names the character created
// together with the account and is used by single-token login.
type Account struct {
	ID               string
	PasswordHash     string
	PrimaryCharacter string
	CreatedAt        time.Time
}

// NewAccount creates a validated Account. primaryCharacter must already be a
// normalized character name.
func NewAccount(id, passwordHash, primaryCharacter string) (*Account, error) {
	if err := ValidateAccountID(id); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_INVALID_INPUT").Errorf("password hash cannot be empty")
	}
	if primaryCharacter == "" {
		return nil, oops.Code("AUTH_INVALID_INPUT").Errorf("primary character cannot be empty")
	}
	return &Account{
		ID:               id,
		PasswordHash:     passwordHash,
		PrimaryCharacter: primaryCharacter,
		CreatedAt:        time.Now().UTC(),
	}, nil
}

// ValidateAccountID checks an externally supplied account id.
func ValidateAccountID(id string) error {
	if id == "" {
		return oops.Code("AUTH_INVALID_INPUT").With("field", "accountId").Errorf("account id cannot be empty")
	}
	if len(id) > MaxAccountIDLength {
		return oops.Code("AUTH_INVALID_INPUT").
			With("field", "accountId").
			With("max", MaxAccountIDLength).
			Errorf("account id must be at most %d characters", MaxAccountIDLength)
	}
	return nil
}

// ValidatePassword checks a plaintext password before hashing.
func ValidatePassword(password string) error {
	if password == "" {
		return oops.Code("AUTH_INVALID_INPUT").With("field", "password").Errorf("password cannot be empty")
	}
	if len(password) > MaxPasswordBytes {
		return oops.Code("AUTH_INVALID_INPUT").
			With("field", "password").
			With("max", MaxPasswordBytes).
			Errorf("password must be at most %d bytes", MaxPasswordBytes)
	}
	return nil
}

// AccountRepository is the credential store. Accounts are never updated or
// deleted through it.
type AccountRepository interface {
	// Get retrieves an account by exact id. Returns ErrNotFound when absent.
	Get(ctx context.Context, id string) (*Account, error)

	// Create stores a new account. Returns ErrDuplicateKey if the id exists;
	// a failed insert leaves no row behind.
	Create(ctx context.Context, account *Account) error
}

// Transactor runs fn inside a single store transaction. Repository calls made
// with the context passed to fn join that transaction. The transaction commits
// when fn returns nil and rolls back otherwise.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
