package cache

import (
	"fmt"
	"os"

	"buildpack/internal/env"
	"buildpack/internal/paths"
	"buildpack/internal/toolchain"
)

// ManagerCacheVar points the secondary manager at its persistent cache.
const ManagerCacheVar = "YARN_CACHE_FOLDER"

type Logger interface {
	Printf(format string, v ...any)
}

type noopLogger struct{}

func (noopLogger) Printf(string, ...any) {}

// Action describes what Prepare did with the dependency cache.
type Action string

const (
	// ActionClean: nothing to restore, dependencies install from scratch.
	ActionClean Action = "clean"
	// ActionRestored: cached dependencies were copied into the build.
	ActionRestored Action = "restored"
	// ActionRebuild: the build already ships dependencies; they are rebuilt
	// in place and the cache is not consulted.
	ActionRebuild Action = "rebuild"
	// ActionRedirected: the secondary manager was pointed at its own cache.
	ActionRedirected Action = "redirected"
)

// Result reports the outcome of Restore or Redirect.
type Result struct {
	Action Action `json:"action"`
	// Dir is the directory the action read from or pointed at, if any.
	Dir string `json:"dir,omitempty"`
}

// Manager restores and persists dependency caches between builds. It does
// no locking; callers serialise access to the build and cache directories.
type Manager struct {
	Paths  paths.Layout
	Logger Logger
}

func NewManager(l paths.Layout, logger Logger) *Manager {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Manager{Paths: l, Logger: logger}
}

// Prepare applies the cache policy for the chosen toolchain: Restore for the
// default manager, Redirect for the secondary one.
func (m *Manager) Prepare(choice toolchain.Choice, e env.Environment) (Result, env.Environment, error) {
	if choice.Manager == toolchain.Secondary {
		next, err := m.Redirect(e)
		if err != nil {
			return Result{}, e, err
		}
		return Result{Action: ActionRedirected, Dir: m.Paths.ManagerCacheDir}, next, nil
	}
	res, err := m.Restore()
	return res, e, err
}

// Restore seeds the build's dependency directory for the default manager.
// An existing dependency directory is never overwritten.
func (m *Manager) Restore() (Result, error) {
	present, err := paths.DirExists(m.Paths.DepsDir)
	if err != nil {
		return Result{}, fmt.Errorf("inspect %s: %w", m.Paths.DepsDir, err)
	}
	if present {
		m.Logger.Printf("cache: %s already present, rebuilding", m.Paths.DepsDir)
		return Result{Action: ActionRebuild, Dir: m.Paths.DepsDir}, nil
	}

	cached, err := paths.DirExists(m.Paths.DepsCacheDir)
	if err != nil {
		return Result{}, fmt.Errorf("inspect %s: %w", m.Paths.DepsCacheDir, err)
	}
	if !cached {
		m.Logger.Printf("cache: nothing cached at %s", m.Paths.DepsCacheDir)
		return Result{Action: ActionClean}, nil
	}

	if err := copyTree(m.Paths.DepsCacheDir, m.Paths.DepsDir); err != nil {
		_ = os.RemoveAll(m.Paths.DepsDir)
		return Result{}, fmt.Errorf("restore cached dependencies: %w", err)
	}
	m.Logger.Printf("cache: restored %s from %s", m.Paths.DepsDir, m.Paths.DepsCacheDir)
	return Result{Action: ActionRestored, Dir: m.Paths.DepsCacheDir}, nil
}

// Redirect discards the default manager's stale dependency cache and returns
// e with the secondary manager's cache folder set.
func (m *Manager) Redirect(e env.Environment) (env.Environment, error) {
	if err := os.RemoveAll(m.Paths.DepsCacheDir); err != nil {
		return e, fmt.Errorf("remove stale dependency cache: %w", err)
	}
	if err := os.MkdirAll(m.Paths.ManagerCacheDir, 0o755); err != nil {
		return e, fmt.Errorf("create %s: %w", m.Paths.ManagerCacheDir, err)
	}
	m.Logger.Printf("cache: %s=%s", ManagerCacheVar, m.Paths.ManagerCacheDir)
	return e.With(ManagerCacheVar, m.Paths.ManagerCacheDir), nil
}

// Save persists the cache after a successful build. For the default manager
// the build's dependency directory replaces the cached copy; the secondary
// manager maintains its own cache, so only the signature is written.
func (m *Manager) Save(choice toolchain.Choice, sig Signature) error {
	if choice.Manager == toolchain.Default {
		if err := m.saveDeps(); err != nil {
			return err
		}
	}
	return SaveSignature(m.Paths, sig)
}

func (m *Manager) saveDeps() error {
	present, err := paths.DirExists(m.Paths.DepsDir)
	if err != nil {
		return fmt.Errorf("inspect %s: %w", m.Paths.DepsDir, err)
	}
	if !present {
		m.Logger.Printf("cache: no %s to save", m.Paths.DepsDir)
		return os.RemoveAll(m.Paths.DepsCacheDir)
	}

	staged := m.Paths.DepsCacheDir + ".tmp"
	if err := os.RemoveAll(staged); err != nil {
		return fmt.Errorf("clear staged cache: %w", err)
	}
	if err := copyTree(m.Paths.DepsDir, staged); err != nil {
		_ = os.RemoveAll(staged)
		return fmt.Errorf("save dependencies: %w", err)
	}
	if err := os.RemoveAll(m.Paths.DepsCacheDir); err != nil {
		return fmt.Errorf("replace cached dependencies: %w", err)
	}
	if err := os.Rename(staged, m.Paths.DepsCacheDir); err != nil {
		return fmt.Errorf("commit cached dependencies: %w", err)
	}
	m.Logger.Printf("cache: saved %s to %s", m.Paths.DepsDir, m.Paths.DepsCacheDir)
	return nil
}
