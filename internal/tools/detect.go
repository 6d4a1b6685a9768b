package tools

import (
	"context"
	"fmt"
	"path/filepath"

	"buildpack/internal/env"
	"buildpack/internal/paths"
	"buildpack/internal/runner"
)

// Detect returns the status of each known tool in the build's vendor
// directory. Versions are read from the executables when r is non-nil.
func Detect(ctx context.Context, l paths.Layout, r runner.Runner, base env.Environment) ([]Status, error) {
	manifest, err := LoadManifest(l)
	if err != nil {
		return nil, err
	}

	environ := base.PrependPath(BinDir(l, "node", "")).Environ()
	statuses := make([]Status, 0, len(toolDefinitions))
	for _, name := range KnownTools() {
		def, _ := Definition(name)
		statuses = append(statuses, detectOne(ctx, l, r, def, manifest, environ))
	}
	return statuses, nil
}

func detectOne(ctx context.Context, l paths.Layout, r runner.Runner, def ToolDefinition, manifest Manifest, environ []string) Status {
	entry, recorded := manifest.Entries[def.Name]
	if !recorded && def.BundledWith != "" {
		if parent, ok := manifest.Entries[def.BundledWith]; ok {
			entry = ManifestEntry{Tool: def.Name, Source: SourceBundled, Path: parent.Path}
			recorded = true
		}
	}
	if !recorded {
		return Status{Tool: def.Name}
	}

	status := statusFromEntry(entry)
	executable := filepath.Join(BinDir(l, def.Name, entry.Version), def.Executable)
	if ok, err := paths.FileExists(executable); err != nil || !ok {
		status.Installed = false
		status.Error = fmt.Sprintf("%s not found", executable)
		return status
	}
	if r == nil {
		return status
	}

	version, err := readVersion(ctx, r, def, executable, environ)
	if err != nil {
		status.Notes = append(status.Notes, err.Error())
		return status
	}
	if status.Version != "" && status.Version != version {
		status.Notes = append(status.Notes, fmt.Sprintf("recorded %s but executable reports %s", status.Version, version))
	}
	status.Version = version
	return status
}
