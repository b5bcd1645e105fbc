// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package character

import (
	"regexp"
	"strings"

	"github.com/samber/oops"
)

// Character name limits.
const (
	MinNameLength = 2
	MaxNameLength = 32
)

// nameRegex allows ASCII letters with single spaces between words.
var nameRegex = regexp.MustCompile(`^[a-z]+( [a-z]+)*$`)

// NormalizeName returns the storage key for a character name: surrounding
// whitespace trimmed, inner runs of whitespace collapsed and lowercased.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// ValidateName checks a normalized character name.
func ValidateName(name string) error {
	if name == "" {
		return oops.Code("CHARACTER_INVALID_NAME").Errorf("character name cannot be empty")
	}
	if len(name) < MinNameLength {
		return oops.Code("CHARACTER_INVALID_NAME").
			With("min", MinNameLength).
			Errorf("character name must be at least %d characters", MinNameLength)
	}
	if len(name) > MaxNameLength {
		return oops.Code("CHARACTER_INVALID_NAME").
			With("max", MaxNameLength).
			Errorf("character name must be at most %d characters", MaxNameLength)
	}
	if !nameRegex.MatchString(name) {
		return oops.Code("CHARACTER_INVALID_NAME").
			Errorf("character name must contain letters and single spaces only")
	}
	return nil
}

// DisplayName converts a normalized name to Initial Caps.
//
// Example: "jon snow" -> "Jon Snow"
func DisplayName(name string) string {
	words := strings.Fields(name)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
