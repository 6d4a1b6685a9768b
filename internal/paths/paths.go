package paths

import (
	"fmt"
	"os"
	"path/filepath"

	"buildpack/internal/config"
)

// Layout captures canonical locations for a single provisioning run.
type Layout struct {
	BuildDir     string
	CacheDir     string
	EnvDir       string
	ManifestFile string
	ConfigFile   string

	VendorDir  string
	RuntimeDir string
	DepsDir    string

	// CacheRoot is the buildpack's own directory inside the cache root.
	CacheRoot       string
	DepsCacheDir    string
	ManagerCacheDir string
	DownloadsDir    string
	LogsDir         string
	SignatureFile   string
}

// Resolve builds the layout for the given build, cache and env directories.
// envDir may be empty.
func Resolve(buildDir, cacheDir, envDir string) (Layout, error) {
	build, err := filepath.Abs(buildDir)
	if err != nil {
		return Layout{}, fmt.Errorf("resolve build dir: %w", err)
	}
	cache, err := filepath.Abs(cacheDir)
	if err != nil {
		return Layout{}, fmt.Errorf("resolve cache dir: %w", err)
	}
	if envDir != "" {
		envDir, err = filepath.Abs(envDir)
		if err != nil {
			return Layout{}, fmt.Errorf("resolve env dir: %w", err)
		}
	}
	return newLayout(build, cache, envDir, config.Default()), nil
}

func newLayout(build, cache, envDir string, cfg config.Config) Layout {
	cacheRoot := filepath.Join(cache, "node")
	vendor := filepath.Join(build, "vendor")
	return Layout{
		BuildDir:        build,
		CacheDir:        cache,
		EnvDir:          envDir,
		ManifestFile:    filepath.Join(build, cfg.Manifest.File),
		ConfigFile:      filepath.Join(build, config.FileName),
		VendorDir:       vendor,
		RuntimeDir:      filepath.Join(vendor, "node"),
		DepsDir:         filepath.Join(build, cfg.Cache.DepsDir),
		CacheRoot:       cacheRoot,
		DepsCacheDir:    filepath.Join(cacheRoot, cfg.Cache.DepsDir),
		ManagerCacheDir: filepath.Join(cache, cfg.Cache.ManagerCacheDir),
		DownloadsDir:    filepath.Join(cacheRoot, "downloads"),
		LogsDir:         filepath.Join(cacheRoot, "logs"),
		SignatureFile:   filepath.Join(cacheRoot, "signature.json"),
	}
}

// ApplyConfig recomputes the config-dependent locations.
func ApplyConfig(l Layout, cfg config.Config) Layout {
	applied := newLayout(l.BuildDir, l.CacheDir, l.EnvDir, cfg)
	applied.ConfigFile = l.ConfigFile
	return applied
}

// ToolDir returns the versioned install directory of a secondary tool,
// e.g. vendor/yarn/1.22.22.
func (l Layout) ToolDir(tool, version string) string {
	return filepath.Join(l.VendorDir, tool, version)
}

// EnsureCacheDirs creates the cache hierarchy used for downloads and logs.
func (l Layout) EnsureCacheDirs() error {
	for _, dir := range []string{l.CacheRoot, l.DownloadsDir, l.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// FileExists reports whether a path exists and is a regular file.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// DirExists reports whether a path exists and is a directory.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}
