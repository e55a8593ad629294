package gateway

import (
	"context"
	"fmt"
	"time"
)

// noDiagnostic is reported when a failing command wrote nothing to stderr.
const noDiagnostic = "command failed with no error output"

// ExecutionError is returned when the external tool exits non-zero or
// cannot be started.
type ExecutionError struct {
	// Command is the literal command line.
	Command string
	// ExitCode is the process exit code (-1 if the process never ran).
	ExitCode int
	// Stderr is the tool's trimmed diagnostic, never empty.
	Stderr string
	// Wrapped is the underlying error (may be nil).
	Wrapped error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s (exit %d): %s", e.Command, e.ExitCode, e.Stderr)
}

func (e *ExecutionError) Unwrap() error { return e.Wrapped }

// TimeoutError is returned when the external tool outlives its bound.
// The process group has been killed and reaped by the time it is returned.
type TimeoutError struct {
	Command string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out after %s", e.Command, e.Timeout)
}

// Unwrap lets errors.Is(err, context.DeadlineExceeded) match.
func (e *TimeoutError) Unwrap() error { return context.DeadlineExceeded }
