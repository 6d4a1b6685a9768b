package provision

import "fmt"

// State is a step of the provisioning state machine.
type State int

const (
	StateStart State = iota
	StateManifestChecked
	StateRuntimeResolved
	StateScriptChecked
	StateRuntimeInstalled
	StateToolchainSelected
	StateDependenciesRestored
	StateDone

	// Terminal failure states.
	StateNoManifest
	StateResolutionFailed
	StateNoScript
	StateInvocationFailed
)

var stateNames = map[State]string{
	StateStart:                "start",
	StateManifestChecked:      "manifest-checked",
	StateRuntimeResolved:      "runtime-resolved",
	StateScriptChecked:        "script-checked",
	StateRuntimeInstalled:     "runtime-installed",
	StateToolchainSelected:    "toolchain-selected",
	StateDependenciesRestored: "dependencies-restored",
	StateDone:                 "done",
	StateNoManifest:           "no-manifest",
	StateResolutionFailed:     "resolution-failed",
	StateNoScript:             "no-script",
	StateInvocationFailed:     "invocation-failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Failed reports whether s is a terminal failure state.
func (s State) Failed() bool {
	return s >= StateNoManifest
}

// MarshalText renders the state name in JSON output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name written by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for state, name := range stateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}
