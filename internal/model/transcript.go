// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "sync"

// Transcript is the append-only list of messages shown in a chat.
// It is safe for concurrent use.
type Transcript struct {
	mu       sync.RWMutex
	messages []Message
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append adds a message and returns it.
func (t *Transcript) Append(msg Message) Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, msg)
	return msg
}

// AppendUser appends a user message.
func (t *Transcript) AppendUser(content string) Message {
	return t.Append(NewMessage(RoleUser, content))
}

// AppendAssistant appends an assistant reply produced by a session.
func (t *Transcript) AppendAssistant(sessionID, content string) Message {
	msg := NewMessage(RoleAssistant, content)
	msg.SessionID = sessionID
	return t.Append(msg)
}

// AppendError appends a failure notice produced by a session.
func (t *Transcript) AppendError(sessionID, content string) Message {
	msg := NewMessage(RoleError, content)
	msg.SessionID = sessionID
	return t.Append(msg)
}

// Messages returns a copy of all messages in order.
func (t *Transcript) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Last returns the most recent message.
func (t *Transcript) Last() (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.messages) == 0 {
		return Message{}, false
	}
	return t.messages[len(t.messages)-1], true
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Clear removes every message. Used when the user resets the chat.
func (t *Transcript) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = nil
}
