package build

import "runtime/debug"

// Version and Date are injected via ldflags for release builds.
var (
	Version = "DEV"
	Date    = ""
)

func init() {
	if Version == "DEV" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "(devel)" && info.Main.Version != "" {
			Version = info.Main.Version
		}
	}
}
