// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the interactive chat screen of the helios TUI.

The screen is a Bubble Tea model. Each submitted message starts one turn:
the message is appended to the transcript, a session runs in a command,
and the session's observer callbacks are forwarded into the program as
messages so the spinner, progress bar and stage list update live.

# Key Components

## Model (model.go)

Model holds the transcript, the current turn and the UI components
(viewport, text input, spinner, progress bar, help).

  - Input is trimmed and NFC-normalized before it is sent
  - Empty input and input while a turn is running are ignored
  - A turn always ends with exactly one assistant or error message

## Bridge (bridge.go)

Responder is the seam that runs a turn; *stream.Client implements it.
Observer callbacks are wrapped as StatusMsg, ProgressMsg, StageMsg and
ResetMsg, tagged with their turn so late messages from an older turn are
dropped.

## Commands (commands.go)

  - /help - Show available commands
  - /clear - Clear the conversation
  - /character [id] - List or pick a character
  - /reset - Generate a new identity

# Usage

	m := chat.New(chat.Options{
	    Responder: client,
	    Journal:   j,
	    Identity:  cfg.Identity,
	    UI:        cfg.UI,
	    Transport: client.TransportName(),
	})
	p := tea.NewProgram(m, tea.WithAltScreen())
	m.AttachProgram(p)
	if _, err := p.Run(); err != nil {
	    return err
	}

Quitting cancels the running turn and shuts the responder down, which
closes any open push connection.
*/
package chat
