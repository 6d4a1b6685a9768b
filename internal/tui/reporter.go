package tui

import (
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"buildpack/internal/provision"
)

// Step table columns.
const (
	ColStep   = "STEP"
	ColStatus = "STATUS"
	ColDetail = "DETAIL"
)

type stepRow struct {
	key   string
	title string
}

var stepRows = []stepRow{
	{"manifest", "Check manifest"},
	{"runtime", "Resolve runtime"},
	{"script", "Check build script"},
	{"install", "Install runtime"},
	{"toolchain", "Package manager"},
	{"dependencies", "Install dependencies"},
	{"build", "Run build script"},
	{"cache", "Save cache"},
}

// stateTransitions maps a reached state to the row it completes and the row
// it starts.
var stateTransitions = map[provision.State]struct {
	finished, finishedStatus string
	started, startedStatus   string
}{
	provision.StateStart:                {"", "", "manifest", "checking"},
	provision.StateManifestChecked:      {"manifest", "done", "runtime", "resolving"},
	provision.StateRuntimeResolved:      {"runtime", "resolved", "script", "checking"},
	provision.StateScriptChecked:        {"script", "done", "install", "installing"},
	provision.StateRuntimeInstalled:     {"install", "installed", "toolchain", "resolving"},
	provision.StateToolchainSelected:    {"toolchain", "done", "dependencies", "installing"},
	provision.StateDependenciesRestored: {"dependencies", "done", "build", "running"},
}

// NewStepModel returns a progress model pre-populated with the build steps.
func NewStepModel(title string) ProgressModel {
	m := NewProgressModel(title, []Column{
		{Header: ColStep, Width: 20},
		{Header: ColStatus, Width: 10},
		{Header: ColDetail, Width: 48},
	})
	for _, row := range stepRows {
		m.AddRow(row.key, []string{row.title, "pending", ""})
	}
	return m
}

// StepReporter turns provisioning progress into table updates. It is used
// from the goroutine running the build only.
type StepReporter struct {
	send    func(tea.Msg)
	current string
}

func NewStepReporter(send func(tea.Msg)) *StepReporter {
	return &StepReporter{send: send}
}

func (r *StepReporter) Enter(state provision.State) {
	if state == provision.StateDone {
		r.update("build", "done", "")
		r.update("cache", "cached", "")
		r.current = ""
		return
	}
	if state.Failed() {
		if r.current != "" {
			r.update(r.current, "failed", "")
		}
		return
	}
	tr, ok := stateTransitions[state]
	if !ok {
		return
	}
	if tr.finished != "" {
		r.update(tr.finished, tr.finishedStatus, "")
	}
	r.current = tr.started
	r.update(tr.started, tr.startedStatus, "")
}

// Section is implied by the step table.
func (r *StepReporter) Section(string) {}

func (r *StepReporter) Detail(format string, args ...any) {
	if r.current == "" {
		return
	}
	r.update(r.current, "", fmt.Sprintf(format, args...))
}

func (r *StepReporter) Warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if r.current != "" {
		r.update(r.current, "retrying", msg)
	}
	r.send(OutputMsg{Line: "! " + msg})
}

func (r *StepReporter) update(key, status, detail string) {
	fields := map[string]string{}
	if status != "" {
		fields[ColStatus] = status
	}
	if detail != "" {
		fields[ColDetail] = detail
	}
	r.send(RowUpdateMsg{Key: key, Fields: fields})
}

// PlainReporter writes the build log as it happens:
//
//	-----> Installing binaries
//	       engines.node (package.json): 20.x
type PlainReporter struct {
	w io.Writer
}

func NewPlainReporter(w io.Writer) *PlainReporter {
	return &PlainReporter{w: w}
}

func (r *PlainReporter) Enter(provision.State) {}

func (r *PlainReporter) Section(title string) {
	fmt.Fprintf(r.w, "\n%s\n", SectionStyle.Render("-----> "+title))
}

func (r *PlainReporter) Detail(format string, args ...any) {
	fmt.Fprintf(r.w, "       %s\n", fmt.Sprintf(format, args...))
}

func (r *PlainReporter) Warn(format string, args ...any) {
	fmt.Fprintf(r.w, "%s\n", WarnStyle.Render(" !     "+fmt.Sprintf(format, args...)))
}

// Failure writes the closing error block of a failed build.
func (r *PlainReporter) Failure(err error) {
	fmt.Fprintf(r.w, "\n%s\n", ErrorStyle.Render("-----> Build failed"))
	for _, line := range strings.Split(err.Error(), "\n") {
		fmt.Fprintf(r.w, " !     %s\n", line)
	}
}

var (
	_ provision.Reporter = (*StepReporter)(nil)
	_ provision.Reporter = (*PlainReporter)(nil)
)
