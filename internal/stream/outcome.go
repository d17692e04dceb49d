// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"errors"
	"time"
)

// Status is the lifecycle state of a session.
type Status int

// Session states.
const (
	StatusIdle Status = iota
	StatusConnecting
	StatusTriggering
	StatusStreaming
	StatusCompleted
	StatusFailed
)

// String returns the lowercase name of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusTriggering:
		return "triggering"
	case StatusStreaming:
		return "streaming"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether the status ends a session.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// fallbackHint is appended to every failure shown to the user.
const fallbackHint = "Please try again, or switch to test mode."

// Outcome is the single resolved result of a session.
type Outcome struct {
	SessionID string
	Status    Status
	Reply     string
	Err       error
	Stages    []StageEntry
	Duration  time.Duration
}

// Failed reports whether the session ended in failure.
func (o Outcome) Failed() bool {
	return o.Status != StatusCompleted || o.Err != nil
}

// Message returns the text to append to the transcript: the assistant
// reply on success, or a description of the failure with a fallback hint.
func (o Outcome) Message() string {
	if !o.Failed() {
		return o.Reply
	}
	return describeFailure(o.Err) + " " + fallbackHint
}

func describeFailure(err error) string {
	var rejected *TriggerRejectedError
	var server *ServerError
	switch {
	case err == nil:
		return "The session ended without a reply."
	case errors.Is(err, ErrConnectionTimeout):
		return "Timed out waiting for the server stream to open."
	case errors.As(err, &rejected):
		if rejected.Detail != "" {
			return "The server declined the request: " + rejected.Detail + "."
		}
		return "The server declined the request."
	case errors.As(err, &server):
		if server.Message != "" {
			return "The transformation failed: " + server.Message + "."
		}
		return "The transformation failed."
	case errors.Is(err, ErrStreamClosed):
		return "The server closed the stream before the transformation finished."
	case errors.Is(err, ErrConnectionError):
		return "Could not reach the server: " + err.Error() + "."
	case errors.Is(err, ErrSessionActive):
		return "A transformation is already in progress."
	case errors.Is(err, ErrSessionClosed):
		return "The session was cancelled."
	}
	return "The session failed: " + err.Error() + "."
}
