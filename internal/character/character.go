// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package character holds the character document model, the blueprint used
// for new characters, and the versioned read-modify-write protocol used to
// change a stored document.
//
// The document is opaque here apart from its display name: gameplay code owns
// its shape. Character names are stored lowercase and are globally unique.
package character

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/samber/oops"
)

// Repository sentinels. Implementations wrap these with context; callers match
// them with errors.Is.
var (
	// ErrNotFound is returned when no character has the requested name.
	ErrNotFound = errors.New("character not found")

	// ErrDuplicateKey is returned when a character name is already stored.
	ErrDuplicateKey = errors.New("character name already exists")

	// ErrOwnerNotFound is returned when the owning account does not exist.
	ErrOwnerNotFound = errors.New("owner account not found")

	// ErrVersionConflict is returned by a conditional write whose expected
	// version no longer matches the stored row.
	ErrVersionConflict = errors.New("character version changed")
)

// Document is the full gameplay state of a character.
type Document map[string]any

// Clone returns a deep copy of d by round-tripping through JSON, which is the
// only representation the stores persist anyway.
func (d Document) Clone() (Document, error) {
	if d == nil {
		return nil, nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, oops.Code("CHARACTER_DOCUMENT_INVALID").Wrap(err)
	}
	var out Document
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, oops.Code("CHARACTER_DOCUMENT_INVALID").Wrap(err)
	}
	return out, nil
}

// Character is a stored character row. Name is the lowercase storage key and
// Version increases by one on every successful document write.
type Character struct {
	Name      string
	AccountID string
	Document  Document
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Summary is the listing view of a character.
type Summary struct {
	Name string `json:"name"`
}

// Repository persists characters.
type Repository interface {
	// Get returns the character stored under name (case-insensitive).
	// Returns ErrNotFound when absent.
	Get(ctx context.Context, name string) (*Character, error)

	// ExistsByName reports whether name is taken (case-insensitive).
	ExistsByName(ctx context.Context, name string) (bool, error)

	// Create inserts a new character at version 1.
	// Returns ErrDuplicateKey if the name is taken and ErrOwnerNotFound if the
	// owning account does not exist.
	Create(ctx context.Context, char *Character) error

	// ListByAccount returns the characters owned by accountID in creation order.
	ListByAccount(ctx context.Context, accountID string) ([]Summary, error)

	// ReplaceDocument overwrites the document unconditionally and bumps the
	// version. Returns ErrNotFound when absent.
	ReplaceDocument(ctx context.Context, name string, doc Document) error

	// CompareAndSwap writes doc only if the stored version equals version and
	// returns the updated row. Returns ErrVersionConflict when no row matched.
	CompareAndSwap(ctx context.Context, name string, version int64, doc Document) (*Character, error)
}
