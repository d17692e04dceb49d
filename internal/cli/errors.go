// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/jeranaias/helios-tui/internal/stream"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates a configuration file or settings error
	ExitConfigError = 3
	// ExitNetworkError indicates the backend could not be reached
	ExitNetworkError = 5
	// ExitServerError indicates the backend rejected or failed the turn
	ExitServerError = 6
	// ExitTimeoutError indicates the push connection did not open in time
	ExitTimeoutError = 8
	// ExitInterrupted indicates the user cancelled the turn
	ExitInterrupted = 130
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ExitError carries a process exit code. Reported is set when the message
// was already shown to the user.
type ExitError struct {
	Code     int
	Err      error
	Reported bool
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// configError wraps a configuration problem.
func configError(err error) error {
	return &ExitError{Code: ExitConfigError, Err: err}
}

// turnExitCode maps a failed turn to an exit code.
func turnExitCode(err error) int {
	switch {
	case err == nil:
		return ExitGeneralError
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.Is(err, stream.ErrConnectionTimeout):
		return ExitTimeoutError
	case errors.Is(err, stream.ErrTriggerRejected), errors.Is(err, stream.ErrServerError):
		return ExitServerError
	case errors.Is(err, stream.ErrConnectionError):
		return ExitNetworkError
	case errors.Is(err, stream.ErrEmptyMessage), errors.Is(err, stream.ErrMissingUserID):
		return ExitUsageError
	}
	return ExitGeneralError
}

// ExitCode returns the process exit code for an error returned by a command.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitGeneralError
}
