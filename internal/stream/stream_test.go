// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// SESSION ID TESTS
// =============================================================================

var sessionIDPattern = regexp.MustCompile(`^session_(\d+)_([0-9a-z]{9})$`)

func TestNewSessionID_Format(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	id := newSessionIDAt(now)

	m := sessionIDPattern.FindStringSubmatch(id)
	require.NotNil(t, m, "unexpected id %q", id)
	assert.Equal(t, strconv.FormatInt(now.UnixMilli(), 10), m[1])
}

func TestNewSessionID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewSessionID()
		if seen[id] {
			t.Fatalf("duplicate session id %q after %d calls", id, i)
		}
		seen[id] = true
	}
}

// =============================================================================
// STAGE LABEL TESTS
// =============================================================================

func TestStageLabel(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{StageConnected, "Connected"},
		{StageBelief, "Belief System"},
		{StageDrive, "Inner Drive"},
		{StageCollective, "Collective Unconscious"},
		{StageBehavior, "Outer-Self Behavior"},
		{StageMind, "Mind Interpretation"},
		{StageReaction, "Outer-Self Reaction"},
		{StageComplete, "Transformation Complete"},
		{"mystery", "mystery"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := StageLabel(tt.key); got != tt.want {
			t.Errorf("StageLabel(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestStages_ReturnsCopy(t *testing.T) {
	s := Stages()
	require.Len(t, s, 6)
	s[0] = "changed"
	assert.Equal(t, StageBelief, Stages()[0])
}

// =============================================================================
// EVENT PARSING TESTS
// =============================================================================

func TestParseEvent(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"type":"stage_update","stage":"belief","status":"completed","content":"x","progress":42.6}`))
	require.NoError(t, err)
	assert.Equal(t, EventStageUpdate, ev.Type)
	assert.Equal(t, "belief", ev.Stage)
	assert.Equal(t, StageStatusCompleted, ev.Status)
	assert.Equal(t, 43, ev.Percent())
	assert.False(t, ev.IsTerminal())
}

func TestParseEvent_Malformed(t *testing.T) {
	inputs := []string{
		`not json`,
		`{"type":`,
		`[]`,
		`{"stage":"belief"}`,
		`{"type":"stage_update","content":17}`,
	}
	for _, in := range inputs {
		_, err := ParseEvent([]byte(in))
		if !errors.Is(err, ErrMalformedEvent) {
			t.Errorf("ParseEvent(%q) error = %v, want ErrMalformedEvent", in, err)
		}
	}
}

func TestEventPercent_Clamped(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	tests := []struct {
		progress *float64
		want     int
	}{
		{nil, 0},
		{f(-5), 0},
		{f(0), 0},
		{f(55), 55},
		{f(150), 100},
	}
	for _, tt := range tests {
		if got := (Event{Progress: tt.progress}).Percent(); got != tt.want {
			t.Errorf("Percent() = %d, want %d", got, tt.want)
		}
	}
}

// =============================================================================
// DISPATCHER TESTS
// =============================================================================

func mustDispatch(t *testing.T, tr *Tracker, raw string) Update {
	t.Helper()
	ev, err := ParseEvent([]byte(raw))
	require.NoError(t, err)
	up, err := tr.Dispatch(ev)
	require.NoError(t, err)
	return up
}

func TestTracker_ConsciousnessStart(t *testing.T) {
	tr := NewTracker()
	mustDispatch(t, tr, `{"type":"stage_update","stage":"drive","status":"processing","progress":30}`)

	up := mustDispatch(t, tr, `{"type":"consciousness_start"}`)
	require.NotNil(t, up.Progress)
	assert.Equal(t, Progress{Stage: StageStart, Percent: 0}, *up.Progress)
	assert.Equal(t, Progress{Stage: StageStart, Percent: 0}, tr.Progress())
}

func TestTracker_LastWriteWins(t *testing.T) {
	tr := NewTracker()
	mustDispatch(t, tr, `{"type":"stage_update","stage":"belief","status":"processing","content":"thinking","progress":10}`)
	mustDispatch(t, tr, `{"type":"stage_update","stage":"drive","status":"processing","content":"wants","progress":20}`)
	mustDispatch(t, tr, `{"type":"stage_update","stage":"belief","status":"processing","content":"still thinking","progress":15}`)
	mustDispatch(t, tr, `{"type":"stage_update","stage":"belief","status":"completed","content":"believes X","progress":25}`)

	rec, ok := tr.Stage("belief")
	require.True(t, ok)
	assert.Equal(t, StageRecord{Status: StageStatusCompleted, Content: "believes X"}, rec)
	assert.Equal(t, "believes X", rec.Display())

	// First-write order is kept even though belief was rewritten last.
	records := tr.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "belief", records[0].Stage)
	assert.Equal(t, "drive", records[1].Stage)

	assert.Equal(t, Progress{Stage: "belief", Percent: 25}, tr.Progress())
}

func TestTracker_StageErrorIsNotTerminal(t *testing.T) {
	tr := NewTracker()
	up := mustDispatch(t, tr, `{"type":"stage_update","stage":"mind","status":"error","content":"boom","progress":70}`)

	assert.Equal(t, ActionNone, up.Action)
	require.NotNil(t, up.Record)
	assert.Equal(t, "❌ boom", up.Record.Display())
}

func TestTracker_ProcessingMarker(t *testing.T) {
	tr := NewTracker()
	up := mustDispatch(t, tr, `{"type":"stage_update","stage":"drive","status":"processing","content":"working"}`)
	require.NotNil(t, up.Record)
	assert.Equal(t, "⏳ working", up.Record.Display())
	assert.Equal(t, 0, tr.Progress().Percent, "absent progress defaults to 0")
}

func TestTracker_UnknownStatusMovesProgressOnly(t *testing.T) {
	tr := NewTracker()
	up := mustDispatch(t, tr, `{"type":"stage_update","stage":"drive","status":"paused","progress":33}`)
	assert.Nil(t, up.Record)
	assert.Equal(t, Progress{Stage: "drive", Percent: 33}, tr.Progress())
	_, ok := tr.Stage("drive")
	assert.False(t, ok)
}

func TestTracker_StageUpdateWithoutStage(t *testing.T) {
	tr := NewTracker()
	_, err := tr.Dispatch(Event{Type: EventStageUpdate, Status: StageStatusCompleted})
	assert.True(t, errors.Is(err, ErrMalformedEvent))
	assert.Empty(t, tr.Records())
}

func TestTracker_TerminalEvents(t *testing.T) {
	tr := NewTracker()

	up := mustDispatch(t, tr, `{"type":"session_complete","content":"final reply"}`)
	assert.Equal(t, ActionComplete, up.Action)
	assert.Equal(t, "final reply", up.Reply)

	up = mustDispatch(t, tr, `{"type":"error","message":"pipeline exploded"}`)
	assert.Equal(t, ActionFail, up.Action)
	assert.True(t, errors.Is(up.Err, ErrServerError))
	assert.Contains(t, up.Err.Error(), "pipeline exploded")
}

func TestTracker_TerminalEventsLeaveStateAlone(t *testing.T) {
	tr := NewTracker()
	mustDispatch(t, tr, `{"type":"stage_update","stage":"drive","status":"completed","progress":33}`)

	up := mustDispatch(t, tr, `{"type":"session_complete","stage":"mind","status":"completed","progress":90,"content":"done"}`)
	assert.Equal(t, ActionComplete, up.Action)
	assert.Nil(t, up.Progress)
	assert.Nil(t, up.Record)
	assert.Equal(t, Progress{Stage: StageDrive, Percent: 33}, tr.Progress())
	require.Len(t, tr.Records(), 1)
	assert.Equal(t, StageDrive, tr.Records()[0].Stage)
}

func TestTracker_IgnoresUnknownAndConnection(t *testing.T) {
	tr := NewTracker()
	for _, raw := range []string{`{"type":"connection"}`, `{"type":"heartbeat","progress":99}`} {
		up := mustDispatch(t, tr, raw)
		assert.Equal(t, Update{}, up)
	}
	assert.Equal(t, Progress{}, tr.Progress())
}

func TestTracker_Reset(t *testing.T) {
	tr := NewTracker()
	mustDispatch(t, tr, `{"type":"stage_update","stage":"belief","status":"completed","content":"x","progress":50}`)
	tr.Reset()
	assert.Equal(t, Progress{}, tr.Progress())
	assert.Empty(t, tr.Records())
}

// =============================================================================
// OUTCOME TESTS
// =============================================================================

func TestOutcomeMessage(t *testing.T) {
	ok := Outcome{Status: StatusCompleted, Reply: "hello"}
	assert.False(t, ok.Failed())
	assert.Equal(t, "hello", ok.Message())

	tests := []struct {
		err  error
		want string
	}{
		{ErrConnectionTimeout, "Timed out"},
		{&TriggerRejectedError{Status: 503, Detail: "busy"}, "busy"},
		{&ServerError{Message: "bad belief"}, "bad belief"},
		{ErrStreamClosed, "closed the stream"},
		{connectionError(errors.New("dial refused")), "dial refused"},
		{ErrSessionActive, "already in progress"},
	}
	for _, tt := range tests {
		out := Outcome{Status: StatusFailed, Err: tt.err}
		msg := out.Message()
		if !strings.Contains(msg, tt.want) {
			t.Errorf("Message() for %v = %q, want it to contain %q", tt.err, msg, tt.want)
		}
		if !strings.Contains(msg, "test mode") {
			t.Errorf("Message() for %v = %q, missing fallback hint", tt.err, msg)
		}
	}
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "streaming", StatusStreaming.String())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusTriggering.Terminal())
}
