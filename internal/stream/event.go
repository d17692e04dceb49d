// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"encoding/json"
	"fmt"
	"math"
)

// =============================================================================
// EVENT TYPES
// =============================================================================

// EventType is the discriminator carried in every frame's "type" field.
type EventType string

// Known event types. Anything else is ignored.
const (
	EventConnection         EventType = "connection"
	EventConsciousnessStart EventType = "consciousness_start"
	EventStageUpdate        EventType = "stage_update"
	EventSessionComplete    EventType = "session_complete"
	EventError              EventType = "error"
)

// StageStatus is the status of a single stage in a stage_update event.
type StageStatus string

// Stage statuses.
const (
	StageStatusProcessing StageStatus = "processing"
	StageStatusCompleted  StageStatus = "completed"
	StageStatusError      StageStatus = "error"
)

// Valid reports whether s is one of the known stage statuses.
func (s StageStatus) Valid() bool {
	switch s {
	case StageStatusProcessing, StageStatusCompleted, StageStatusError:
		return true
	}
	return false
}

// Event is a decoded frame from the push connection.
type Event struct {
	Type     EventType   `json:"type"`
	Stage    string      `json:"stage,omitempty"`
	Status   StageStatus `json:"status,omitempty"`
	Content  string      `json:"content,omitempty"`
	Progress *float64    `json:"progress,omitempty"`
	Message  string      `json:"message,omitempty"`
}

// ParseEvent decodes a JSON frame. Frames that are not a JSON object or
// carry no type return an error wrapping ErrMalformedEvent.
func ParseEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if ev.Type == "" {
		return Event{}, fmt.Errorf("%w: missing type", ErrMalformedEvent)
	}
	return ev, nil
}

// IsTerminal reports whether the event ends the session.
func (e Event) IsTerminal() bool {
	return e.Type == EventSessionComplete || e.Type == EventError
}

// Percent returns the reported progress rounded and clamped to 0..100.
// An absent progress field counts as 0.
func (e Event) Percent() int {
	if e.Progress == nil || math.IsNaN(*e.Progress) {
		return 0
	}
	p := math.Round(*e.Progress)
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return int(p)
}
