package provision

import (
	"errors"
	"fmt"
	"testing"

	"buildpack/internal/resolve"
)

func TestResolutionErrorKinds(t *testing.T) {
	noMatch := &resolve.BackendError{Reason: resolve.ReasonNoMatch, Message: "No result"}
	out := resolve.Outcome{Kind: resolve.Unsatisfiable, Reason: resolve.ReasonNoMatch, Err: noMatch, Attempts: 1}

	err := ResolutionError("node", ">=99", out, nil)
	var unsat *UnsatisfiableConstraintError
	if !errors.As(err, &unsat) {
		t.Fatalf("expected UnsatisfiableConstraintError, got %T", err)
	}
	if unsat.Message != "Could not find Node version corresponding to version requirement: >=99" {
		t.Fatalf("unexpected message %q", unsat.Message)
	}
	if ExitCode(err) != ExitUnsatisfiable {
		t.Fatalf("exit code = %d", ExitCode(err))
	}

	down := errors.New("connection refused")
	out = resolve.Outcome{Kind: resolve.Transient, Reason: resolve.ReasonUnknown, Err: down, Attempts: 5}
	err = ResolutionError("yarn", "1.x", out, down)
	var trans *TransientResolutionError
	if !errors.As(err, &trans) {
		t.Fatalf("expected TransientResolutionError, got %T", err)
	}
	if trans.Attempts != 5 || trans.Message != `Error: Unknown error installing "1.x" of yarn` {
		t.Fatalf("unexpected error %+v", trans)
	}
	if !errors.Is(err, down) {
		t.Fatal("expected the backend error to be wrapped")
	}
}

func TestFailedStateThroughWrapping(t *testing.T) {
	inner := &ToolInvocationError{State: StateInvocationFailed, Step: "npm install", Err: errors.New("exit status 1")}
	wrapped := fmt.Errorf("compile: %w", inner)

	state, ok := FailedState(wrapped)
	if !ok || state != StateInvocationFailed {
		t.Fatalf("FailedState = %s, %v", state, ok)
	}
	if ExitCode(wrapped) != ExitInvocation {
		t.Fatalf("exit code = %d", ExitCode(wrapped))
	}
	if _, ok := FailedState(errors.New("plain")); ok {
		t.Fatal("untyped error must not carry a state")
	}
}

func TestStateText(t *testing.T) {
	text, err := StateNoScript.MarshalText()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var s State
	if err := s.UnmarshalText(text); err != nil || s != StateNoScript {
		t.Fatalf("round trip = %s, %v", s, err)
	}
	if err := s.UnmarshalText([]byte("bogus")); err == nil {
		t.Fatal("expected error for unknown state")
	}
	if !StateResolutionFailed.Failed() || StateDone.Failed() {
		t.Fatal("unexpected Failed classification")
	}
}
