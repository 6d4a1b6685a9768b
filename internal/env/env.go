// Package env models the process environment handed to provisioning steps as
// an immutable value. Steps that expose new binaries return an updated copy
// instead of mutating the process environment.
package env

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Environment is an immutable set of environment variables.
type Environment struct {
	vars map[string]string
}

// FromList builds an Environment from KEY=VALUE pairs. Later duplicates win.
func FromList(list []string) Environment {
	vars := make(map[string]string, len(list))
	for _, kv := range list {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		vars[key] = value
	}
	return Environment{vars: vars}
}

// FromOS snapshots the current process environment.
func FromOS() Environment {
	return FromList(os.Environ())
}

// Get returns the value of key.
func (e Environment) Get(key string) (string, bool) {
	v, ok := e.vars[key]
	return v, ok
}

// With returns a copy of e with key set to value.
func (e Environment) With(key, value string) Environment {
	next := e.clone()
	next.vars[key] = value
	return next
}

// Without returns a copy of e with key removed.
func (e Environment) Without(key string) Environment {
	if _, ok := e.vars[key]; !ok {
		return e
	}
	next := e.clone()
	delete(next.vars, key)
	return next
}

// PrependPath returns a copy of e with dirs placed in front of PATH, in order.
func (e Environment) PrependPath(dirs ...string) Environment {
	if len(dirs) == 0 {
		return e
	}
	parts := append([]string{}, dirs...)
	if current, ok := e.vars["PATH"]; ok && current != "" {
		parts = append(parts, current)
	}
	return e.With("PATH", strings.Join(parts, string(os.PathListSeparator)))
}

// Merge returns a copy of e overlaid with every variable of other.
func (e Environment) Merge(other Environment) Environment {
	if len(other.vars) == 0 {
		return e
	}
	next := e.clone()
	for k, v := range other.vars {
		next.vars[k] = v
	}
	return next
}

// Environ returns the variables as sorted KEY=VALUE pairs, suitable for
// exec.Cmd.Env.
func (e Environment) Environ() []string {
	out := make([]string, 0, len(e.vars))
	for k, v := range e.vars {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// LookPath searches PATH of e for an executable named file.
func (e Environment) LookPath(file string) (string, bool) {
	for _, dir := range filepath.SplitList(e.vars["PATH"]) {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, file)
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		if info.Mode()&0o111 != 0 {
			return candidate, true
		}
	}
	return "", false
}

// Len reports the number of variables.
func (e Environment) Len() int {
	return len(e.vars)
}

func (e Environment) clone() Environment {
	vars := make(map[string]string, len(e.vars)+1)
	for k, v := range e.vars {
		vars[k] = v
	}
	return Environment{vars: vars}
}
