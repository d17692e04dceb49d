// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// =============================================================================
// PROGRESS STATE
// =============================================================================

// Progress is the current stage and completion percentage reported by the server.
type Progress struct {
	Stage   string
	Percent int
}

// StageRecord is the latest state of one stage.
type StageRecord struct {
	Status  StageStatus
	Content string
}

// Display returns the record as shown in a stage list: pending and failed
// stages carry a leading marker, completed stages show their content as is.
func (r StageRecord) Display() string {
	switch r.Status {
	case StageStatusProcessing:
		return "⏳ " + r.Content
	case StageStatusError:
		return "❌ " + r.Content
	}
	return r.Content
}

// StageEntry pairs a stage key with its record.
type StageEntry struct {
	Stage  string
	Record StageRecord
}

// =============================================================================
// DISPATCH
// =============================================================================

// Action tells the session what to do after an event was applied.
type Action int

const (
	// ActionNone keeps the session streaming.
	ActionNone Action = iota
	// ActionComplete resolves the session successfully.
	ActionComplete
	// ActionFail resolves the session with a server error.
	ActionFail
)

// Update describes the effect of one dispatched event.
type Update struct {
	Action Action

	// Progress is set when the event reassigned progress.
	Progress *Progress

	// Stage and Record are set when the event wrote a stage record.
	Stage  string
	Record *StageRecord

	// Reply is the assistant content of a session_complete event.
	Reply string

	// Err is the failure of an error event.
	Err error
}

// Tracker holds the progress and stage records of one session.
// It is not safe for concurrent use.
type Tracker struct {
	progress Progress
	stages   *orderedmap.OrderedMap[string, StageRecord]
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{stages: orderedmap.New[string, StageRecord]()}
}

// Dispatch applies ev to the tracker. A stage_update without a stage is
// reported as ErrMalformedEvent and leaves the tracker untouched.
// Unknown event types are a no-op.
func (t *Tracker) Dispatch(ev Event) (Update, error) {
	if ev.IsTerminal() {
		return terminalUpdate(ev), nil
	}

	switch ev.Type {
	case EventConnection:
		return Update{}, nil

	case EventConsciousnessStart:
		t.progress = Progress{Stage: StageStart, Percent: 0}
		p := t.progress
		return Update{Progress: &p}, nil

	case EventStageUpdate:
		if ev.Stage == "" {
			return Update{}, fmt.Errorf("%w: stage_update without stage", ErrMalformedEvent)
		}
		t.progress = Progress{Stage: ev.Stage, Percent: ev.Percent()}
		p := t.progress
		up := Update{Progress: &p}
		// An unrecognized status still moves progress but records nothing.
		if ev.Status.Valid() {
			rec := StageRecord{Status: ev.Status, Content: ev.Content}
			t.stages.Set(ev.Stage, rec)
			up.Stage = ev.Stage
			up.Record = &rec
		}
		return up, nil
	}
	return Update{}, nil
}

// terminalUpdate resolves a session_complete or error event. Terminal
// events never touch progress or stage records.
func terminalUpdate(ev Event) Update {
	if ev.Type == EventError {
		return Update{Action: ActionFail, Err: &ServerError{Message: ev.Message}}
	}
	return Update{Action: ActionComplete, Reply: ev.Content}
}

// Progress returns the current progress.
func (t *Tracker) Progress() Progress {
	return t.progress
}

// Stage returns the record for a stage key.
func (t *Tracker) Stage(key string) (StageRecord, bool) {
	return t.stages.Get(key)
}

// Records returns all stage records in first-write order.
func (t *Tracker) Records() []StageEntry {
	out := make([]StageEntry, 0, t.stages.Len())
	for pair := t.stages.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, StageEntry{Stage: pair.Key, Record: pair.Value})
	}
	return out
}

// Reset clears progress and all stage records.
func (t *Tracker) Reset() {
	t.progress = Progress{}
	t.stages = orderedmap.New[string, StageRecord]()
}
