// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the transcript and persona types shared by the
// chat interfaces.
//
// # Key Types
//
//   - Message: one transcript entry (user, assistant or error)
//   - Transcript: append-only message list owned by a chat front end
//   - Character: a selectable persona from the backend's catalog
//
// # Usage
//
//	t := model.NewTranscript()
//	t.AppendUser("I keep putting things off")
//	t.AppendAssistant(outcome.SessionID, outcome.Reply)
package model
