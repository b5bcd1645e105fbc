// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package character

import (
	"github.com/samber/oops"
)

// Sex selects the sex-dependent defaults of a new character.
type Sex string

// Recognized sexes.
const (
	SexFemale Sex = "female"
	SexMale   Sex = "male"
)

// ParseSex validates a sex selector.
func ParseSex(s string) (Sex, error) {
	switch Sex(s) {
	case SexFemale, SexMale:
		return Sex(s), nil
	default:
		return "", oops.Code("CHARACTER_INVALID_SEX").
			With("sex", s).
			Errorf("sex must be %q or %q", SexFemale, SexMale)
	}
}

// sexDefaults is the fixed per-sex part of a blueprint.
type sexDefaults struct {
	code    int
	outfit  int
	outfits []int
}

var blueprintDefaults = map[Sex]sexDefaults{
	SexFemale: {code: 0, outfit: 136, outfits: []int{136, 137, 138, 139}},
	SexMale:   {code: 1, outfit: 128, outfits: []int{128, 129, 130, 131}},
}

// Starting values shared by every new character.
const (
	startLevel      = 1
	startHealth     = 150
	startMana       = 55
	startCapacity   = 400
	startSpeed      = 220
	startTownID     = 1
	startPositionX  = 1000
	startPositionY  = 1000
	startPositionZ  = 7
	startSkillLevel = 10
)

var skillNames = []string{"fist", "club", "sword", "axe", "distance", "shielding", "fishing"}

// NewDocument builds the starting document for a new character.
// name must already be normalized. The result shares no state with other calls.
func NewDocument(name string, sex Sex) (Document, error) {
	defaults, ok := blueprintDefaults[sex]
	if !ok {
		return nil, oops.Code("CHARACTER_INVALID_SEX").
			With("sex", string(sex)).
			Errorf("no blueprint for sex %q", sex)
	}

	skills := make(map[string]any, len(skillNames))
	for _, skill := range skillNames {
		skills[skill] = map[string]any{"level": float64(startSkillLevel), "tries": float64(0)}
	}

	// JSON numbers decode as float64, so store every number as float64 to
	// keep fresh and reloaded documents comparable.
	outfits := make([]any, 0, len(defaults.outfits))
	for _, id := range defaults.outfits {
		outfits = append(outfits, float64(id))
	}

	return Document{
		"name":       DisplayName(name),
		"sex":        float64(defaults.code),
		"level":      float64(startLevel),
		"experience": float64(0),
		"health":     float64(startHealth),
		"healthMax":  float64(startHealth),
		"mana":       float64(startMana),
		"manaMax":    float64(startMana),
		"capacity":   float64(startCapacity),
		"speed":      float64(startSpeed),
		"gold":       float64(0),
		"townId":     float64(startTownID),
		"position": map[string]any{
			"x": float64(startPositionX),
			"y": float64(startPositionY),
			"z": float64(startPositionZ),
		},
		"outfit": map[string]any{
			"type":   float64(defaults.outfit),
			"head":   float64(78),
			"body":   float64(69),
			"legs":   float64(58),
			"feet":   float64(76),
			"addons": float64(0),
		},
		"availableOutfits": outfits,
		"skills":           skills,
		"inventory":        []any{},
		"storage":          map[string]any{},
	}, nil
}
