// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"runtime"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// DefaultBcryptCost is the bcrypt work factor for new hashes.
const DefaultBcryptCost = 12

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces a salted hash of the password.
	Hash(ctx context.Context, password string) (string, error)

	// Verify checks if the password matches the hash.
	// Returns (true, nil) on match, (false, nil) on mismatch, or an
	// AUTH_HASH_FAILED error when the comparison could not be performed.
	Verify(ctx context.Context, password, hash string) (bool, error)

	// DummyHash returns a hash that matches no password and costs as much to
	// verify as one produced by Hash.
	DummyHash() string
}

// BcryptHasher implements PasswordHasher with bcrypt. At most concurrency
// hash computations run at once; callers beyond that wait on their context.
type BcryptHasher struct {
	cost  int
	sem   *semaphore.Weighted
	dummy string
}

// NewBcryptHasher creates a BcryptHasher. A concurrency of zero or less means
// one slot per CPU.
func NewBcryptHasher(cost, concurrency int) (*BcryptHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, oops.Code("AUTH_INVALID_COST").
			With("cost", cost).
			Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}

	// Nobody knows the random input, so the dummy hash matches no password.
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, oops.Code("AUTH_HASH_FAILED").With("operation", "generate dummy secret").Wrap(err)
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(secret)), cost)
	if err != nil {
		return nil, oops.Code("AUTH_HASH_FAILED").With("operation", "generate dummy hash").Wrap(err)
	}

	return &BcryptHasher{
		cost:  cost,
		sem:   semaphore.NewWeighted(int64(concurrency)),
		dummy: string(dummy),
	}, nil
}

// DummyHash returns a hash of a random secret at the hasher's cost.
func (h *BcryptHasher) DummyHash() string {
	return h.dummy
}

// Hash produces a bcrypt hash of the password.
func (h *BcryptHasher) Hash(ctx context.Context, password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", oops.Code("AUTH_HASH_FAILED").With("operation", "wait for hashing slot").Wrap(err)
	}
	defer h.sem.Release(1)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", oops.Code("AUTH_HASH_FAILED").With("operation", "generate hash").Wrap(err)
	}
	return string(hash), nil
}

// Verify checks if the password matches the hash.
func (h *BcryptHasher) Verify(ctx context.Context, password, hash string) (bool, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, oops.Code("AUTH_HASH_FAILED").With("operation", "wait for hashing slot").Wrap(err)
	}
	defer h.sem.Release(1)

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, oops.Code("AUTH_HASH_FAILED").With("operation", "compare hash").Wrap(err)
	}
}
