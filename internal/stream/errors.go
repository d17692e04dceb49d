// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"errors"
	"fmt"
)

// Error variables for session failures.
var (
	// ErrConnectionTimeout indicates the push connection did not confirm it
	// was open within the open timeout.
	ErrConnectionTimeout = errors.New("connection timeout: stream did not open in time")

	// ErrConnectionError indicates a transport-level failure before or during streaming.
	ErrConnectionError = errors.New("connection error")

	// ErrStreamClosed indicates the server ended the stream before a terminal event.
	ErrStreamClosed = fmt.Errorf("%w: stream closed before the session finished", ErrConnectionError)

	// ErrTriggerRejected indicates the server declined the trigger request.
	// Match with errors.Is; the concrete error is a *TriggerRejectedError.
	ErrTriggerRejected = errors.New("trigger rejected")

	// ErrServerError indicates the server emitted a terminal error event.
	// Match with errors.Is; the concrete error is a *ServerError.
	ErrServerError = errors.New("server error")

	// ErrMalformedEvent indicates a frame that could not be decoded as an event.
	// It is never fatal to a session.
	ErrMalformedEvent = errors.New("malformed event")

	// ErrSessionActive indicates a session was started while another was running.
	ErrSessionActive = errors.New("a session is already active")

	// ErrSessionClosed indicates the session was torn down before it finished.
	ErrSessionClosed = errors.New("session closed")

	// ErrMissingUserID indicates a session was started without a user id.
	ErrMissingUserID = errors.New("user id is required")

	// ErrEmptyMessage indicates a session was started with an empty message.
	ErrEmptyMessage = errors.New("message is empty")
)

// TriggerRejectedError is returned when the trigger endpoint answers with a
// non-success status. Detail carries the server-supplied error text.
type TriggerRejectedError struct {
	Status int
	Detail string
}

// Error implements the error interface.
func (e *TriggerRejectedError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("trigger rejected (HTTP %d)", e.Status)
	}
	return fmt.Sprintf("trigger rejected (HTTP %d): %s", e.Status, e.Detail)
}

// Is reports whether target is ErrTriggerRejected.
func (e *TriggerRejectedError) Is(target error) bool {
	return target == ErrTriggerRejected
}

// ServerError is the failure carried by a terminal error event.
type ServerError struct {
	Message string
}

// Error implements the error interface.
func (e *ServerError) Error() string {
	if e.Message == "" {
		return "server reported an error"
	}
	return "server error: " + e.Message
}

// Is reports whether target is ErrServerError.
func (e *ServerError) Is(target error) bool {
	return target == ErrServerError
}

// connectionError wraps a transport failure so it matches ErrConnectionError.
func connectionError(err error) error {
	if err == nil || errors.Is(err, ErrConnectionError) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrConnectionError, err)
}
