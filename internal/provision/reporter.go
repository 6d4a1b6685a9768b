package provision

// Reporter receives build progress. Section starts a top-level step, Detail
// adds a line beneath it, Enter marks a state transition.
type Reporter interface {
	Enter(state State)
	Section(title string)
	Detail(format string, args ...any)
	Warn(format string, args ...any)
}

type noopReporter struct{}

func (noopReporter) Enter(State)           {}
func (noopReporter) Section(string)        {}
func (noopReporter) Detail(string, ...any) {}
func (noopReporter) Warn(string, ...any)   {}
