// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/gatehouse/internal/character"
)

var _ character.Repository = (*CharacterRepository)(nil)

const characterColumns = `name, account_id, document, version, created_at, updated_at`

// CharacterRepository implements character.Repository on SQLite.
type CharacterRepository struct {
	db  *DB
	now func() time.Time
}

// NewCharacterRepository creates a new CharacterRepository.
func NewCharacterRepository(db *DB) *CharacterRepository {
	return &CharacterRepository{db: db, now: time.Now}
}

// Get retrieves a character by name.
func (r *CharacterRepository) Get(ctx context.Context, name string) (*character.Character, error) {
	key := strings.ToLower(name)
	row := r.db.conn(ctx).QueryRowContext(ctx,
		`SELECT `+characterColumns+` FROM characters WHERE name = ?`, key)
	char, err := scanCharacter(row)
	if errors.Is(err, sql.ErrNoRows) {
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
	err := r.db.conn(ctx).QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM characters WHERE name = ?)`, strings.ToLower(name)).Scan(&exists)
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

	now := r.now().UTC()
	key := strings.ToLower(char.Name)
	_, err = r.db.conn(ctx).ExecContext(ctx, `
		INSERT INTO characters (name, account_id, document, version, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)
	`, key, char.AccountID, string(doc), now.UnixMilli(), now.UnixMilli())
	switch {
	case isUniqueViolation(err):
		return oops.With("name", key).Wrap(character.ErrDuplicateKey)
	case isForeignKeyViolation(err):
		return oops.With("account_id", char.AccountID).Wrap(character.ErrOwnerNotFound)
	case err != nil:
		return oops.Code("CHARACTER_CREATE_FAILED").
			With("operation", "insert character").
			With("name", key).
			Wrap(err)
	}

	char.Name = key
	char.Version = 1
	char.CreatedAt = time.UnixMilli(now.UnixMilli()).UTC()
	char.UpdatedAt = char.CreatedAt
	return nil
}

// ListByAccount returns the characters owned by accountID, oldest first.
func (r *CharacterRepository) ListByAccount(ctx context.Context, accountID string) ([]character.Summary, error) {
	rows, err := r.db.conn(ctx).QueryContext(ctx, `
		SELECT name FROM characters
		WHERE account_id = ?
		ORDER BY created_at, rowid
	`, accountID)
	if err != nil {
		return nil, oops.Code("CHARACTER_QUERY_FAILED").
			With("operation", "list characters").
			With("account_id", accountID).
			Wrap(err)
	}
	defer func() { _ = rows.Close() }()

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

	res, err := r.db.conn(ctx).ExecContext(ctx, `
		UPDATE characters
		SET document = ?, version = version + 1, updated_at = ?
		WHERE name = ?
	`, string(raw), r.now().UnixMilli(), strings.ToLower(name))
	if err != nil {
		return oops.Code("CHARACTER_UPDATE_FAILED").
			With("operation", "replace document").
			With("name", name).
			Wrap(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return oops.Code("CHARACTER_UPDATE_FAILED").With("operation", "rows affected").Wrap(err)
	}
	if n == 0 {
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

	row := r.db.conn(ctx).QueryRowContext(ctx, `
		UPDATE characters
		SET document = ?, version = version + 1, updated_at = ?
		WHERE name = ? AND version = ?
		RETURNING `+characterColumns,
		string(raw), r.now().UnixMilli(), strings.ToLower(name), version)
	char, err := scanCharacter(row)
	if errors.Is(err, sql.ErrNoRows) {
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

func scanCharacter(row *sql.Row) (*character.Character, error) {
	var (
		c                character.Character
		raw              string
		created, updated int64
	)
	if err := row.Scan(&c.Name, &c.AccountID, &raw, &c.Version, &created, &updated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(raw), &c.Document); err != nil {
		return nil, oops.Code("CHARACTER_DOCUMENT_INVALID").With("name", c.Name).Wrap(err)
	}
	c.CreatedAt = time.UnixMilli(created).UTC()
	c.UpdatedAt = time.UnixMilli(updated).UTC()
	return &c, nil
}
