package tui

import (
	"errors"
	"io"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrInterrupted is returned when the user quits the interactive view.
var ErrInterrupted = errors.New("interrupted")

// RunWithWork creates a bubbletea program, launches workFn in a goroutine,
// and blocks until both have finished. workFn's error ends the program with
// an ErrorMsg and is returned. If the user interrupts the view, cancel is
// called and ErrInterrupted is returned once workFn has stopped.
func RunWithWork(out io.Writer, model ProgressModel, cancel func(), workFn func(send func(tea.Msg)) error) error {
	p := tea.NewProgram(model, tea.WithOutput(out))

	workErr := make(chan error, 1)
	go func() {
		err := workFn(p.Send)
		workErr <- err
		if err != nil {
			p.Send(ErrorMsg{Err: err})
			return
		}
		p.Send(WorkDoneMsg{})
	}()

	finalModel, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := finalModel.(ProgressModel); ok && errors.Is(m.Err(), ErrInterrupted) {
		if cancel != nil {
			cancel()
		}
		<-workErr
		return ErrInterrupted
	}
	return <-workErr
}
