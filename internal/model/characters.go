// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// CHARACTER CATALOG
// =============================================================================

// Character is a persona the user can speak as. The id matches the
// backend's character table.
type Character struct {
	ID          string
	Name        string
	Description string
}

// Characters lists the selectable personas in display order.
var Characters = []Character{
	{
		ID:          "introverted_student",
		Name:        "Introverted Student",
		Description: "20-year-old undergraduate, afraid of saying the wrong thing and being laughed at, longs to be understood",
	},
	{
		ID:          "ambitious_youth",
		Name:        "Ambitious Youth",
		Description: "25-year-old new hire, hungry for success but full of anxiety, afraid of being ordinary",
	},
	{
		ID:          "lonely_artist",
		Name:        "Lonely Artist",
		Description: "28-year-old freelance creator chasing beauty and truth, worn down by reality",
	},
	{
		ID:          "anxious_parent",
		Name:        "Anxious Parent",
		Description: "35-year-old parent, worried about their child's safety and future, wants to give the best but fears it is not enough",
	},
}

// LookupCharacter returns the character with the given id.
func LookupCharacter(id string) (Character, bool) {
	for _, c := range Characters {
		if c.ID == id {
			return c, true
		}
	}
	return Character{}, false
}

// CharacterIDs returns the ids of all characters in display order.
func CharacterIDs() []string {
	ids := make([]string, len(Characters))
	for i, c := range Characters {
		ids[i] = c.ID
	}
	return ids
}
