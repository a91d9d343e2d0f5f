package driver

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	ErrNotStarted   = errors.New("agent process not started")
	ErrTurnInFlight = errors.New("a turn is already in flight")
	ErrStopping     = errors.New("client is stopping")
	ErrClientClosed = errors.New("client is closed")
)

// SpawnError indicates the agent executable could not be started at all.
// This is fatal for the turn and user-actionable, so Error carries a
// remediation hint alongside the cause.
type SpawnError struct {
	Cause error
	Path  string
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("agent executable %q could not be started: %v (install the agent CLI, make sure it is on PATH, and run %q once to sign in)",
		e.Path, e.Cause, e.Path+" login")
}

func (e *SpawnError) Unwrap() error {
	return e.Cause
}

// ProcessError represents a process-level failure after a successful spawn.
type ProcessError struct {
	Cause    error
	Message  string
	Stderr   string
	ExitCode int
}

func (e *ProcessError) Error() string {
	if e.ExitCode != 0 {
		return fmt.Sprintf("process error: %s (exit code %d)", e.Message, e.ExitCode)
	}
	return fmt.Sprintf("process error: %s", e.Message)
}

func (e *ProcessError) Unwrap() error {
	return e.Cause
}
