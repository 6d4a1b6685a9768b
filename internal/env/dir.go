package env

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// blockedVars are never imported from an env dir; they would break the
// provisioned toolchain or the build host.
var blockedVars = map[string]bool{
	"PATH":         true,
	"GIT_DIR":      true,
	"CPATH":        true,
	"CPPFLAGS":     true,
	"LD_PRELOAD":   true,
	"LIBRARY_PATH": true,
}

// LoadDir reads an env dir where every regular file is a variable named after
// the file and valued with its contents. A missing or empty dir yields an
// empty Environment.
func LoadDir(dir string) (Environment, error) {
	loaded := Environment{vars: map[string]string{}}
	if dir == "" {
		return loaded, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return loaded, nil
		}
		return Environment{}, fmt.Errorf("read env dir: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || blockedVars[name] || strings.HasPrefix(name, ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return Environment{}, fmt.Errorf("read env var %s: %w", name, err)
		}
		loaded.vars[name] = string(data)
	}
	return loaded, nil
}
