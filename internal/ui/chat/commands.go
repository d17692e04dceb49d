// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/helios-tui/internal/config"
	"github.com/jeranaias/helios-tui/internal/model"
)

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// commandFunc handles one slash command. args excludes the command name.
type commandFunc func(m Model, args []string) (Model, tea.Cmd)

var commandHelp = map[string]string{
	"/help":      "show commands",
	"/clear":     "clear the conversation",
	"/character": "list characters, or pick one: /character <id>",
	"/reset":     "forget your identity and start fresh",
}

var commands map[string]commandFunc

func init() {
	commands = map[string]commandFunc{
		"/help":      cmdHelp,
		"/clear":     cmdClear,
		"/character": cmdCharacter,
		"/reset":     cmdReset,
	}
}

func (m Model) runCommand(text string) (Model, tea.Cmd) {
	fields := strings.Fields(text)
	name := strings.ToLower(fields[0])
	fn, ok := commands[name]
	if !ok {
		m.notice = fmt.Sprintf("Unknown command %s. Type /help for a list.", name)
		return m, nil
	}
	return fn(m, fields[1:])
}

func cmdHelp(m Model, _ []string) (Model, tea.Cmd) {
	names := make([]string, 0, len(commandHelp))
	for name := range commandHelp {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + " " + commandHelp[name]
	}
	m.notice = strings.Join(parts, " | ")
	return m, nil
}

func cmdClear(m Model, _ []string) (Model, tea.Cmd) {
	m.transcript.Clear()
	m.notice = "Conversation cleared."
	m.dirty = true
	return m, nil
}

func cmdCharacter(m Model, args []string) (Model, tea.Cmd) {
	if len(args) == 0 {
		parts := make([]string, 0, len(model.Characters))
		for _, c := range model.Characters {
			entry := c.ID
			if c.ID == m.identity.Character {
				entry += " (current)"
			}
			parts = append(parts, entry)
		}
		m.notice = "Characters: " + strings.Join(parts, ", ")
		return m, nil
	}

	c, ok := model.LookupCharacter(args[0])
	if !ok {
		m.notice = fmt.Sprintf("Unknown character %q.", args[0])
		return m, nil
	}
	m.identity.Character = c.ID
	m.dirty = true
	return m, m.saveIdentity("Speaking as " + c.Name + ".")
}

func cmdReset(m Model, _ []string) (Model, tea.Cmd) {
	cfg := &config.Config{}
	cfg.ResetIdentity()
	cfg.EnsureIdentity()
	m.identity = cfg.Identity
	m.transcript.Clear()
	m.dirty = true
	return m, m.saveIdentity("Identity reset. Pick a character with /character.")
}

// saveIdentity persists the current identity and reports notice on success.
func (m Model) saveIdentity(notice string) tea.Cmd {
	save := m.opts.SaveIdentity
	identity := m.identity
	return func() tea.Msg {
		if save == nil {
			return identitySavedMsg{Notice: notice}
		}
		return identitySavedMsg{Notice: notice, Err: save(identity)}
	}
}
