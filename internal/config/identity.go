// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"github.com/google/uuid"
	"github.com/jeranaias/helios-tui/internal/model"
)

// ValidUserID reports whether id is a canonical UUID.
func ValidUserID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// EnsureIdentity repairs the identity section in place: a missing or
// malformed user id is replaced by a fresh UUID and an unknown character is
// cleared. It reports whether anything changed so the caller can persist.
func (c *Config) EnsureIdentity() bool {
	changed := false
	if !ValidUserID(c.Identity.UserID) {
		c.Identity.UserID = uuid.NewString()
		changed = true
	}
	if c.Identity.Character != "" {
		if _, ok := model.LookupCharacter(c.Identity.Character); !ok {
			c.Identity.Character = ""
			changed = true
		}
	}
	return changed
}

// ResetIdentity forgets the user id and character. The next EnsureIdentity
// call generates a new id.
func (c *Config) ResetIdentity() {
	c.Identity = IdentityConfig{}
}
