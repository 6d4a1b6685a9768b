package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestRowUpdateMsg(t *testing.T) {
	m := NewProgressModel("test", []Column{
		{Header: "STEP", Width: 10},
		{Header: "STATUS", Width: 10},
		{Header: "DETAIL", Width: 10},
	})
	m.AddRow("runtime", []string{"Resolve", "pending", ""})
	m.AddRow("install", []string{"Install", "pending", ""})

	updated, _ := m.Update(RowUpdateMsg{
		Key:    "runtime",
		Fields: map[string]string{"STATUS": "resolved", "DETAIL": "20.11.1"},
	})
	m = updated.(ProgressModel)

	if m.rows[0].Fields[1] != "resolved" {
		t.Errorf("expected STATUS=resolved, got %q", m.rows[0].Fields[1])
	}
	if m.rows[0].Fields[2] != "20.11.1" {
		t.Errorf("expected DETAIL=20.11.1, got %q", m.rows[0].Fields[2])
	}
	if m.rows[1].Fields[1] != "pending" {
		t.Errorf("expected row 2 STATUS=pending, got %q", m.rows[1].Fields[1])
	}
}

func TestRowUpdateMsg_UnknownKey(t *testing.T) {
	m := NewProgressModel("test", []Column{
		{Header: "STATUS", Width: 10},
	})
	m.AddRow("runtime", []string{"pending"})

	updated, _ := m.Update(RowUpdateMsg{
		Key:    "nope",
		Fields: map[string]string{"STATUS": "done"},
	})
	m = updated.(ProgressModel)

	if m.rows[0].Fields[0] != "pending" {
		t.Errorf("expected STATUS unchanged, got %q", m.rows[0].Fields[0])
	}
}

func TestOutputMsgKeepsTail(t *testing.T) {
	m := NewProgressModel("test", []Column{{Header: "STATUS", Width: 10}})
	for i := 0; i < outputLines+3; i++ {
		updated, _ := m.Update(OutputMsg{Line: strings.Repeat("x", i+1)})
		m = updated.(ProgressModel)
	}
	if len(m.output) != outputLines {
		t.Fatalf("expected %d lines kept, got %d", outputLines, len(m.output))
	}
	if m.output[len(m.output)-1] != strings.Repeat("x", outputLines+3) {
		t.Fatalf("expected newest line last, got %q", m.output[len(m.output)-1])
	}
	if !strings.Contains(m.View(), strings.Repeat("x", outputLines+3)) {
		t.Fatalf("expected output tail in view")
	}
}

func TestWorkDoneMsg(t *testing.T) {
	m := NewProgressModel("test", []Column{
		{Header: "STATUS", Width: 10},
	})

	updated, cmd := m.Update(WorkDoneMsg{})
	m = updated.(ProgressModel)

	if !m.Done() {
		t.Error("expected Done() to be true after WorkDoneMsg")
	}
	if cmd == nil {
		t.Error("expected tea.Quit command")
	}
}

func TestErrorMsg(t *testing.T) {
	m := NewProgressModel("test", []Column{
		{Header: "STATUS", Width: 10},
	})

	updated, cmd := m.Update(ErrorMsg{Err: errors.New("boom")})
	m = updated.(ProgressModel)

	if !m.Done() {
		t.Error("expected Done() to be true after ErrorMsg")
	}
	if m.Err() == nil {
		t.Error("expected Err() to be non-nil")
	}
	if cmd == nil {
		t.Error("expected tea.Quit command")
	}
}

func TestView(t *testing.T) {
	m := NewStepModel("-----> Building")

	view := m.View()

	for _, want := range []string{"STEP", "STATUS", "DETAIL", "Resolve runtime", "Run build script", "pending", "Step 0/8"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}
}

func TestTruncateWithEllipsis(t *testing.T) {
	tests := []struct {
		input string
		max   int
		want  string
	}{
		{"short", 10, "short"},
		{"a longer string here", 10, "a longe..."},
		{"abc", 3, "abc"},
		{"abcd", 3, "abc"},
		{"", 5, ""},
		{"hello", 0, ""},
	}
	for _, tt := range tests {
		got := TruncateWithEllipsis(tt.input, tt.max)
		if got != tt.want {
			t.Errorf("TruncateWithEllipsis(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.want)
		}
	}
}

func TestMarqueeText(t *testing.T) {
	tests := []struct {
		text  string
		width int
		tick  int
		want  string
	}{
		{"short", 10, 0, "short"},
		{"hello world here", 5, 0, "hello"},
		{"hello world here", 5, 1, "ello "},
		{"hello world here", 5, 5, " worl"},
		{"abcdef", 4, 0, "abcd"},
		{"abcdef", 4, 6, "   a"},
	}
	for _, tt := range tests {
		got := marqueeText(tt.text, tt.width, tt.tick)
		if got != tt.want {
			t.Errorf("marqueeText(%q, %d, %d) = %q, want %q", tt.text, tt.width, tt.tick, got, tt.want)
		}
	}
}

func TestSpinnerTick(t *testing.T) {
	m := NewProgressModel("test", []Column{
		{Header: "STATUS", Width: 10},
	})
	m.AddRow("runtime", []string{"pending"})

	updated, cmd := m.Update(m.spinner.Tick())
	m = updated.(ProgressModel)

	if m.tick != 1 {
		t.Errorf("expected tick=1 after spinner tick, got %d", m.tick)
	}
	if cmd == nil {
		t.Error("expected next tick command")
	}
}

func TestTickStopsAfterDone(t *testing.T) {
	m := NewProgressModel("test", []Column{
		{Header: "STATUS", Width: 10},
	})
	updated, _ := m.Update(WorkDoneMsg{})
	m = updated.(ProgressModel)

	_, cmd := m.Update(m.spinner.Tick())
	if cmd != nil {
		t.Error("expected no tick command after done")
	}
}

func TestProgressCounts(t *testing.T) {
	m := NewProgressModel("test", []Column{
		{Header: "STEP", Width: 5},
		{Header: "STATUS", Width: 10},
	})
	m.AddRow("manifest", []string{"a", "done"})
	m.AddRow("runtime", []string{"b", "resolving"})
	m.AddRow("script", []string{"c", "pending"})

	processed, total := m.progressCounts()
	if total != 3 {
		t.Errorf("expected total=3, got %d", total)
	}
	if processed != 2 {
		t.Errorf("expected processed=2, got %d", processed)
	}
}

func TestViewHidesSpinnerWhenDone(t *testing.T) {
	m := NewStepModel("")
	updated, _ := m.Update(WorkDoneMsg{})
	m = updated.(ProgressModel)

	if strings.Contains(m.View(), "Step ") {
		t.Error("expected view to NOT contain the step footer when done")
	}
}

func TestCtrlC(t *testing.T) {
	m := NewProgressModel("test", []Column{
		{Header: "STATUS", Width: 10},
	})

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = updated.(ProgressModel)

	if !m.Done() || !errors.Is(m.Err(), ErrInterrupted) {
		t.Error("expected interrupted model after ctrl+c")
	}
	if cmd == nil {
		t.Error("expected tea.Quit command")
	}
}
