package tools

import (
	"path/filepath"
	"sort"

	"buildpack/internal/paths"
)

var toolDefinitions = map[string]ToolDefinition{
	"node": {
		Name:          "node",
		Display:       "Node",
		Executable:    "node",
		VersionSwitch: "--version",
		Archive:       true,
	},
	"npm": {
		Name:          "npm",
		Display:       "npm",
		Executable:    "npm",
		VersionSwitch: "--version",
		BundledWith:   "node",
	},
	"yarn": {
		Name:          "yarn",
		Display:       "Yarn",
		Executable:    "yarn",
		VersionSwitch: "--version",
		Archive:       true,
	},
}

// KnownTools returns the list of managed tool names.
func KnownTools() []string {
	names := make([]string, 0, len(toolDefinitions))
	for name := range toolDefinitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definition returns the tool definition for the provided name.
func Definition(name string) (ToolDefinition, bool) {
	def, ok := toolDefinitions[name]
	return def, ok
}

// Display returns the human name of a tool, falling back to its identifier.
func Display(name string) string {
	if def, ok := toolDefinitions[name]; ok {
		return def.Display
	}
	return name
}

// InstallDir is where an archive tool of the given version is committed:
// vendor/node for the runtime, vendor/<tool>/<version> otherwise.
func InstallDir(l paths.Layout, tool, version string) string {
	if tool == "node" {
		return l.RuntimeDir
	}
	return l.ToolDir(tool, version)
}

// BinDir is the directory holding the tool's executables.
func BinDir(l paths.Layout, tool, version string) string {
	if def, ok := toolDefinitions[tool]; ok && def.BundledWith != "" {
		tool = def.BundledWith
	}
	return filepath.Join(InstallDir(l, tool, version), "bin")
}
