// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package postgres implements the character document store on PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/holomush/gatehouse/internal/character"
	"github.com/holomush/gatehouse/internal/store"
)

// Compile-time interface check.
var _ character.Repository = (*CharacterRepository)(nil)

const characterColumns = `name, account_id, document, version, created_at, updated_at`

// CharacterRepository implements character.Repository using PostgreSQL.
type CharacterRepository struct {
	pool store.Querier
}

// NewCharacterRepository creates a new CharacterRepository.
func NewCharacterRepository(pool store.Querier) *CharacterRepository {
	return &CharacterRepository{pool: pool}
}

// Get retrieves a character by name.
func (r *CharacterRepository) Get(ctx context.Context, name string) (*character.Character, error) {
	key := strings.ToLower(name)
	row := store.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+characterColumns+` FROM characters WHERE name = $1`, key)
	char, err := scanCharacter(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("name", key).Wrap(character.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("CHARACTER_GET_FAILED").With("name", key).Wrap(err)
	}
	return char, nil
}

// ExistsByName reports whether a character name is taken.
func (r *CharacterRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := store.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM characters WHERE name = $1)`, strings.ToLower(name)).Scan(&exists)
	if err != nil {
		return false, oops.Code("CHARACTER_QUERY_FAILED").
			With("operation", "check name exists").
			With("name", name).
			Wrap(err)
	}
	return exists, nil
}

// Create inserts char at version 1 and fills in its timestamps.
func (r *CharacterRepository) Create(ctx context.Context, char *character.Character) error {
	doc, err := json.Marshal(char.Document)
	if err != nil {
		return oops.Code("CHARACTER_DOCUMENT_INVALID").With("name", char.Name).Wrap(err)
	}

	now := time.Now().UTC()
	_, err = store.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO characters (name, account_id, document, version, created_at, updated_at)
		VALUES ($1, $2, $3, 1, $4, $4)
	`, strings.ToLower(char.Name), char.AccountID, doc, now)
	switch {
	case store.IsUniqueViolation(err):
		return oops.With("name", char.Name).Wrap(character.ErrDuplicateKey)
	case store.IsForeignKeyViolation(err):
		return oops.With("account_id", char.AccountID).Wrap(character.ErrOwnerNotFound)
	case err != nil:
		return oops.Code("CHARACTER_CREATE_FAILED").
			With("operation", "insert character").
			With("name", char.Name).
			Wrap(err)
	}

	char.Name = strings.ToLower(char.Name)
	char.Version = 1
	char.CreatedAt = now
	char.UpdatedAt = now
	return nil
}

// ListByAccount returns the characters owned by accountID, oldest first.
func (r *CharacterRepository) ListByAccount(ctx context.Context, accountID string) ([]character.Summary, error) {
	rows, err := store.Conn(ctx, r.pool).Query(ctx, `
		SELECT name FROM characters
		WHERE account_id = $1
		ORDER BY created_at, name
	`, accountID)
	if err != nil {
		return nil, oops.Code("CHARACTER_QUERY_FAILED").
			With("operation", "list characters").
			With("account_id", accountID).
			Wrap(err)
	}
	defer rows.Close()

	summaries := make([]character.Summary, 0)
	for rows.Next() {
		var s character.Summary
		if err := rows.Scan(&s.Name); err != nil {
			return nil, oops.Code("CHARACTER_QUERY_FAILED").With("operation", "scan character").Wrap(err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("CHARACTER_QUERY_FAILED").With("operation", "iterate characters").Wrap(err)
	}
	return summaries, nil
}

// ReplaceDocument overwrites the stored document.
func (r *CharacterRepository) ReplaceDocument(ctx context.Context, name string, doc character.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return oops.Code("CHARACTER_DOCUMENT_INVALID").With("name", name).Wrap(err)
	}

	tag, err := store.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE characters
		SET document = $2, version = version + 1, updated_at = NOW()
		WHERE name = $1
	`, strings.ToLower(name), raw)
	if err != nil {
		return oops.Code("CHARACTER_UPDATE_FAILED").
			With("operation", "replace document").
			With("name", name).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.With("name", name).Wrap(character.ErrNotFound)
	}
	return nil
}

// CompareAndSwap writes doc only when the stored version still equals version.
func (r *CharacterRepository) CompareAndSwap(ctx context.Context, name string, version int64, doc character.Document) (*character.Character, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, oops.Code("CHARACTER_DOCUMENT_INVALID").With("name", name).Wrap(err)
	}

	row := store.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE characters
		SET document = $3, version = version + 1, updated_at = NOW()
		WHERE name = $1 AND version = $2
		RETURNING `+characterColumns,
		strings.ToLower(name), version, raw)
	char, err := scanCharacter(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("name", name).With("version", version).Wrap(character.ErrVersionConflict)
	}
	if err != nil {
		return nil, oops.Code("CHARACTER_UPDATE_FAILED").
			With("operation", "compare and swap").
			With("name", name).
			Wrap(err)
	}
	return char, nil
}

func scanCharacter(row pgx.Row) (*character.Character, error) {
	var (
		c   character.Character
		raw []byte
	)
	if err := row.Scan(&c.Name, &c.AccountID, &raw, &c.Version, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &c.Document); err != nil {
		return nil, oops.Code("CHARACTER_DOCUMENT_INVALID").With("name", c.Name).Wrap(err)
	}
	return &c, nil
}
