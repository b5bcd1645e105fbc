// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/gatehouse/internal/character"
	"github.com/holomush/gatehouse/internal/config"
)

// NewCharacterCmd creates the character subcommand and its children.
func NewCharacterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "character",
		Short: "Inspect and edit stored characters",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get NAME",
		Short: "Print a character and its document as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runCharacterGet,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set NAME KEY VALUE",
		Short: "Set a document field to a JSON value",
		Long: `Set KEY in the character's document to VALUE, which is parsed as JSON
(quote strings: '"north"'). KEY may be a dotted path such as position.x;
missing intermediate objects are created. The write retries on concurrent
updates and never overwrites a newer document.`,
		Args: cobra.ExactArgs(3),
		RunE: runCharacterSet,
	})

	return cmd
}

// characterView is the JSON printed by the character commands.
type characterView struct {
	Name      string             `json:"name"`
	AccountID string             `json:"accountId"`
	Version   int64              `json:"version"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
	Document  character.Document `json:"document"`
}

func printCharacter(cmd *cobra.Command, char *character.Character) error {
	out, err := json.MarshalIndent(characterView{
		Name:      char.Name,
		AccountID: char.AccountID,
		Version:   char.Version,
		CreatedAt: char.CreatedAt,
		UpdatedAt: char.UpdatedAt,
		Document:  char.Document,
	}, "", "  ")
	if err != nil {
		return oops.Code("CHARACTER_DOCUMENT_INVALID").Wrap(err)
	}
	cmd.Println(string(out))
	return nil
}

func openCharacterBackend(cmd *cobra.Command) (*config.Config, *Backend, error) {
	cfg, err := loadConfig(cmd, (*config.Config).ValidateDatabase)
	if err != nil {
		return nil, nil, err
	}
	backend, err := openBackend(commandContext(cmd), cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return cfg, backend, nil
}

func runCharacterGet(cmd *cobra.Command, args []string) error {
	_, backend, err := openCharacterBackend(cmd)
	if err != nil {
		return err
	}
	defer backend.Close()

	char, err := backend.Characters.Get(commandContext(cmd), args[0])
	if err != nil {
		return err
	}
	return printCharacter(cmd, char)
}

func runCharacterSet(cmd *cobra.Command, args []string) error {
	name, key, raw := args[0], args[1], args[2]

	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return oops.Code("INVALID_VALUE").With("value", raw).Wrap(err)
	}
	path, err := parsePath(key)
	if err != nil {
		return err
	}

	cfg, backend, err := openCharacterBackend(cmd)
	if err != nil {
		return err
	}
	defer backend.Close()

	updater, err := character.NewUpdater(backend.Characters,
		character.WithMaxRetries(cfg.Update.MaxRetries),
		character.WithBaseDelay(cfg.Update.BaseDelay),
		character.WithConflictHook(conflictReporter(cmd.ErrOrStderr())),
	)
	if err != nil {
		return err
	}

	updated, err := updater.Update(commandContext(cmd), name, func(doc character.Document) (character.Document, error) {
		return setPath(doc, path, value)
	})
	if err != nil {
		return err
	}
	return printCharacter(cmd, updated)
}

// conflictReporter tells the operator when a write lost to a concurrent
// update.
func conflictReporter(w io.Writer) func(name string) {
	return func(name string) {
		_, _ = fmt.Fprintf(w, "version conflict on character %s\n", name)
	}
}

// parsePath splits a dotted key. The display name is not editable here.
func parsePath(key string) ([]string, error) {
	path := strings.Split(key, ".")
	for _, part := range path {
		if part == "" {
			return nil, oops.Code("INVALID_KEY").With("key", key).Errorf("key has an empty segment")
		}
	}
	if len(path) == 1 && path[0] == "name" {
		return nil, oops.Code("INVALID_KEY").With("key", key).Errorf("the name field cannot be changed")
	}
	return path, nil
}

// setPath stores value at path in doc, creating objects along the way.
func setPath(doc character.Document, path []string, value any) (character.Document, error) {
	if doc == nil {
		return nil, oops.Code("CHARACTER_DOCUMENT_INVALID").Errorf("stored document is not an object")
	}
	current := map[string]any(doc)
	for i, part := range path[:len(path)-1] {
		next, ok := current[part]
		if !ok {
			child := map[string]any{}
			current[part] = child
			current = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return nil, oops.Code("INVALID_KEY").
				With("key", strings.Join(path[:i+1], ".")).
				Errorf("field is not an object")
		}
		current = child
	}
	current[path[len(path)-1]] = value
	return doc, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
