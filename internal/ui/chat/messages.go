// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/helios-tui/internal/config"
	"github.com/jeranaias/helios-tui/internal/stream"
)

// Every session message carries the turn it belongs to. Messages from an
// older turn are dropped.

// =============================================================================
// SESSION MESSAGES
// =============================================================================

// StatusMsg reports a session lifecycle change.
type StatusMsg struct {
	Turn   int
	Status stream.Status
}

// ProgressMsg reports the latest stage and overall percent.
type ProgressMsg struct {
	Turn    int
	Stage   string
	Percent int
}

// StageMsg reports the latest record of one stage.
type StageMsg struct {
	Turn   int
	Stage  string
	Record stream.StageRecord
}

// ResetMsg clears the stage list and progress of a finished turn.
type ResetMsg struct {
	Turn int
}

// ResolvedMsg carries the single outcome of a turn.
type ResolvedMsg struct {
	Turn    int
	Outcome stream.Outcome
}

// =============================================================================
// SETTINGS MESSAGES
// =============================================================================

// ConfigChangedMsg delivers a reloaded configuration.
type ConfigChangedMsg struct {
	Config *config.Config
}

// identitySavedMsg reports the result of persisting an identity change.
type identitySavedMsg struct {
	Notice string
	Err    error
}
