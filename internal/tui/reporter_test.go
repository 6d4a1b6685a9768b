package tui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"buildpack/internal/provision"
)

// applyAll feeds every message sent by a reporter into the model.
func applyAll(m ProgressModel, msgs []tea.Msg) ProgressModel {
	for _, msg := range msgs {
		updated, _ := m.Update(msg)
		m = updated.(ProgressModel)
	}
	return m
}

func rowStatus(m ProgressModel, key string) string {
	return m.rows[m.rowIndex[key]].Fields[1]
}

func TestStepReporterSuccess(t *testing.T) {
	var msgs []tea.Msg
	r := NewStepReporter(func(msg tea.Msg) { msgs = append(msgs, msg) })

	for _, s := range []provision.State{
		provision.StateStart, provision.StateManifestChecked, provision.StateRuntimeResolved,
		provision.StateScriptChecked, provision.StateRuntimeInstalled, provision.StateToolchainSelected,
		provision.StateDependenciesRestored,
	} {
		r.Enter(s)
	}
	r.Detail("Running build script: %s", "tsc")
	r.Enter(provision.StateDone)

	m := applyAll(NewStepModel(""), msgs)
	want := map[string]string{
		"manifest":     "done",
		"runtime":      "resolved",
		"script":       "done",
		"install":      "installed",
		"toolchain":    "done",
		"dependencies": "done",
		"build":        "done",
		"cache":        "cached",
	}
	for key, status := range want {
		if got := rowStatus(m, key); got != status {
			t.Errorf("row %s: status %q, want %q", key, got, status)
		}
	}
	if got := m.rows[m.rowIndex["build"]].Fields[2]; got != "Running build script: tsc" {
		t.Errorf("unexpected build detail %q", got)
	}
}

func TestStepReporterFailureMarksCurrentRow(t *testing.T) {
	var msgs []tea.Msg
	r := NewStepReporter(func(msg tea.Msg) { msgs = append(msgs, msg) })

	r.Enter(provision.StateStart)
	r.Enter(provision.StateManifestChecked)
	r.Warn("attempt %d failed", 1)
	r.Enter(provision.StateResolutionFailed)

	m := applyAll(NewStepModel(""), msgs)
	if got := rowStatus(m, "runtime"); got != "failed" {
		t.Fatalf("expected runtime row failed, got %q", got)
	}
	if got := rowStatus(m, "script"); got != "pending" {
		t.Fatalf("expected later rows pending, got %q", got)
	}
	if len(m.output) != 1 || m.output[0] != "! attempt 1 failed" {
		t.Fatalf("expected warning in output tail, got %v", m.output)
	}
}

func TestPlainReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewPlainReporter(&buf)

	r.Section("Installing binaries")
	r.Detail("engines.node (package.json): %s", "20.x")
	r.Warn("Could not save the build cache")
	r.Failure(errors.New("Could not find Node version corresponding to version requirement: >=99"))

	out := buf.String()
	for _, want := range []string{
		"-----> Installing binaries",
		"       engines.node (package.json): 20.x\n",
		" !     Could not save the build cache",
		"-----> Build failed",
		" !     Could not find Node version corresponding to version requirement: >=99\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestLineWriter(t *testing.T) {
	var lines []string
	w := NewLineWriter(func(line string) { lines = append(lines, line) })

	_, _ = w.Write([]byte("added 12 pack"))
	_, _ = w.Write([]byte("ages\r\naudited 13 packages\npartial"))
	if strings.Join(lines, "|") != "added 12 packages|audited 13 packages" {
		t.Fatalf("unexpected lines %q", lines)
	}
	w.Flush()
	if len(lines) != 3 || lines[2] != "partial" {
		t.Fatalf("expected flushed partial line, got %q", lines)
	}
}

func TestIndentWriter(t *testing.T) {
	var buf bytes.Buffer
	w := IndentWriter(&buf, "       ")
	_, _ = w.Write([]byte("> tsc\n"))
	if buf.String() != "       > tsc\n" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}
