// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package character

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Update retry defaults.
const (
	DefaultMaxRetries = 5
	DefaultBaseDelay  = 10 * time.Millisecond
)

// Mutation transforms a character document. It receives a private copy of the
// stored document and returns the document to persist. It may run more than
// once for a single Update call and must not have side effects.
type Mutation func(doc Document) (Document, error)

// Updater applies mutations to stored documents without losing concurrent
// writes: each attempt reads the document and its version, applies the
// mutation, and writes conditionally on the version it read. A conflicting
// write makes the attempt start over after an exponential backoff.
type Updater struct {
	repo       Repository
	maxRetries uint64
	baseDelay  time.Duration
	onConflict func(name string)
}

// UpdaterOption configures an Updater.
type UpdaterOption func(*Updater)

// WithMaxRetries sets how many times a conflicting attempt is retried.
func WithMaxRetries(n uint64) UpdaterOption {
	return func(u *Updater) {
		u.maxRetries = n
	}
}

// WithBaseDelay sets the first backoff delay; later delays double.
func WithBaseDelay(d time.Duration) UpdaterOption {
	return func(u *Updater) {
		if d > 0 {
			u.baseDelay = d
		}
	}
}

// WithConflictHook registers fn to be called on every version conflict.
func WithConflictHook(fn func(name string)) UpdaterOption {
	return func(u *Updater) {
		u.onConflict = fn
	}
}

// NewUpdater creates an Updater over repo.
func NewUpdater(repo Repository, opts ...UpdaterOption) (*Updater, error) {
	if repo == nil {
		return nil, oops.Errorf("character repository is required")
	}
	u := &Updater{
		repo:       repo,
		maxRetries: DefaultMaxRetries,
		baseDelay:  DefaultBaseDelay,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u, nil
}

// Update applies fn to the document of the named character and persists the
// result. It returns the updated character.
//
// Errors:
//   - CHARACTER_NOT_FOUND when the character does not exist
//   - CHARACTER_MUTATION_FAILED when fn fails (never retried)
//   - CHARACTER_UPDATE_CONFLICT when every attempt lost to a concurrent writer
func (u *Updater) Update(ctx context.Context, name string, fn Mutation) (*Character, error) {
	key := NormalizeName(name)
	attempts := 0

	var updated *Character
	backoff := retry.WithMaxRetries(u.maxRetries, retry.WithJitterPercent(20, retry.NewExponential(u.baseDelay)))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++

		current, err := u.repo.Get(ctx, key)
		if err != nil {
			return err
		}

		doc, err := current.Document.Clone()
		if err != nil {
			return err
		}
		next, err := fn(doc)
		if err != nil {
			return oops.Code("CHARACTER_MUTATION_FAILED").With("name", key).Wrap(err)
		}
		if next == nil {
			return oops.Code("CHARACTER_MUTATION_FAILED").With("name", key).Errorf("mutation returned a nil document")
		}

		updated, err = u.repo.CompareAndSwap(ctx, key, current.Version, next)
		if errors.Is(err, ErrVersionConflict) {
			if u.onConflict != nil {
				u.onConflict(key)
			}
			return retry.RetryableError(err)
		}
		return err
	})

	switch {
	case err == nil:
		return updated, nil
	case errors.Is(err, ErrVersionConflict):
		return nil, oops.Code("CHARACTER_UPDATE_CONFLICT").
			With("name", key).
			With("attempts", attempts).
			Wrap(err)
	case errors.Is(err, ErrNotFound):
		return nil, oops.Code("CHARACTER_NOT_FOUND").With("name", key).Wrap(err)
	default:
		return nil, oops.With("operation", "update character document").With("name", key).Wrap(err)
	}
}
