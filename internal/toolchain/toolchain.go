package toolchain

// Manager identifies which package manager drives dependency installation.
type Manager int

const (
	// Default is the manager bundled with the runtime (npm).
	Default Manager = iota
	// Secondary is the alternative manager (Yarn), installed separately.
	Secondary
)

// Tool identifiers.
const (
	RuntimeTool   = "node"
	DefaultTool   = "npm"
	SecondaryTool = "yarn"
)

func (m Manager) String() string {
	if m == Secondary {
		return SecondaryTool
	}
	return DefaultTool
}

// Choice is the outcome of Select. Exactly one manager is chosen; Pinned and
// Constraint describe the version requirement for that manager only.
type Choice struct {
	Manager Manager
	// Pinned is true when a version must be resolved and installed for the
	// chosen manager. The secondary manager is always pinned.
	Pinned     bool
	Constraint string
}

// Tool returns the executable name used to install dependencies and run
// scripts.
func (c Choice) Tool() string {
	return c.Manager.String()
}

// Select picks the toolchain from the primary and secondary manager
// constraints. A non-nil secondary wins regardless of primary.
func Select(primary, secondary *string) Choice {
	if secondary != nil {
		return Choice{Manager: Secondary, Pinned: true, Constraint: *secondary}
	}
	if primary != nil {
		return Choice{Manager: Default, Pinned: true, Constraint: *primary}
	}
	return Choice{Manager: Default}
}
