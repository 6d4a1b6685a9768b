package provision

import (
	"errors"
	"fmt"
	"strings"

	"buildpack/internal/resolve"
	"buildpack/internal/tools"
)

// Process exit codes for provisioning failures.
const (
	ExitFailure       = 1
	ExitPrecondition  = 2
	ExitUnsatisfiable = 3
	ExitTransient     = 4
	ExitInvocation    = 5
)

// PreconditionError reports a project that cannot be built as-is: no
// manifest, or no build script.
type PreconditionError struct {
	State   State
	Message string
	Err     error
}

func (e *PreconditionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *PreconditionError) Unwrap() error { return e.Err }
func (e *PreconditionError) ExitCode() int { return ExitPrecondition }

// UnsatisfiableConstraintError reports a constraint that no retry can fix.
type UnsatisfiableConstraintError struct {
	State      State
	Tool       string
	Constraint string
	Reason     resolve.Reason
	// Message is the user-facing failure line.
	Message string
	Err     error
}

func (e *UnsatisfiableConstraintError) Error() string { return e.Message }
func (e *UnsatisfiableConstraintError) Unwrap() error { return e.Err }
func (e *UnsatisfiableConstraintError) ExitCode() int { return ExitUnsatisfiable }

// TransientResolutionError reports a resolution that kept failing until the
// retry budget ran out.
type TransientResolutionError struct {
	State      State
	Tool       string
	Constraint string
	Attempts   int
	Message    string
	Err        error
}

func (e *TransientResolutionError) Error() string { return e.Message }
func (e *TransientResolutionError) Unwrap() error { return e.Err }
func (e *TransientResolutionError) ExitCode() int { return ExitTransient }

// ToolInvocationError reports a failed install or build step.
type ToolInvocationError struct {
	State   State
	Step    string
	Command string
	Args    []string
	Err     error
}

func (e *ToolInvocationError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Step, e.Err)
}

func (e *ToolInvocationError) Unwrap() error { return e.Err }
func (e *ToolInvocationError) ExitCode() int { return ExitInvocation }

// CommandLine renders the failed command for diagnostics.
func (e *ToolInvocationError) CommandLine() string {
	if e.Command == "" {
		return ""
	}
	return strings.TrimSpace(e.Command + " " + strings.Join(e.Args, " "))
}

// ResolutionError converts a failed resolution outcome into the typed error
// for its kind. explained is the backend's answer to one more query for the
// same constraint; when nil the outcome's last error supplies the text.
func ResolutionError(tool, constraint string, out resolve.Outcome, explained error) error {
	if explained == nil {
		explained = out.Err
	}
	message := resolve.FailureMessage(tools.Display(tool), tool, constraint, explained)

	if out.Kind == resolve.Unsatisfiable {
		return &UnsatisfiableConstraintError{
			State:      StateResolutionFailed,
			Tool:       tool,
			Constraint: constraint,
			Reason:     out.Reason,
			Message:    message,
			Err:        out.Err,
		}
	}
	return &TransientResolutionError{
		State:      StateResolutionFailed,
		Tool:       tool,
		Constraint: constraint,
		Attempts:   out.Attempts,
		Message:    message,
		Err:        out.Err,
	}
}

// FailedState returns the terminal state carried by a provisioning error.
func FailedState(err error) (State, bool) {
	var (
		pre   *PreconditionError
		unsat *UnsatisfiableConstraintError
		trans *TransientResolutionError
		inv   *ToolInvocationError
	)
	switch {
	case errors.As(err, &pre):
		return pre.State, true
	case errors.As(err, &unsat):
		return unsat.State, true
	case errors.As(err, &trans):
		return trans.State, true
	case errors.As(err, &inv):
		return inv.State, true
	default:
		return StateStart, false
	}
}

type exitCoder interface {
	ExitCode() int
}

// ExitCode maps err to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var coded exitCoder
	if errors.As(err, &coded) {
		return coded.ExitCode()
	}
	return ExitFailure
}
