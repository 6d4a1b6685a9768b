package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the optional per-project configuration file looked up in the
// build directory when no explicit path is given.
const FileName = "buildpack.yaml"

// Backend names accepted by resolver.backend.
const (
	BackendHTTP    = "http"
	BackendIndex   = "index"
	BackendCommand = "command"
)

// Config captures how a build is provisioned.
type Config struct {
	Version  int            `yaml:"version"`
	Manifest ManifestConfig `yaml:"manifest"`
	Runtime  RuntimeConfig  `yaml:"runtime"`
	Resolver ResolverConfig `yaml:"resolver"`
	Download DownloadConfig `yaml:"download"`
	Cache    CacheConfig    `yaml:"cache"`
}

// ManifestConfig names the manifest file and the fields read from it.
type ManifestConfig struct {
	File           string `yaml:"file"`
	RuntimeField   string `yaml:"runtime_field"`
	PrimaryField   string `yaml:"primary_field"`
	SecondaryField string `yaml:"secondary_field"`
	Script         string `yaml:"script"`
}

// RuntimeConfig holds runtime defaults.
type RuntimeConfig struct {
	// DefaultConstraint is used when the manifest declares no runtime range.
	DefaultConstraint string `yaml:"default_constraint"`
}

// ResolverConfig selects and tunes the version resolution backend.
type ResolverConfig struct {
	Backend   string        `yaml:"backend"`
	URL       string        `yaml:"url"`
	IndexFile string        `yaml:"index_file"`
	Command   string        `yaml:"command"`
	Attempts  int           `yaml:"attempts"`
	Timeout   time.Duration `yaml:"timeout"`
}

// DownloadConfig tunes artifact downloads.
type DownloadConfig struct {
	Retries int           `yaml:"retries"`
	Timeout time.Duration `yaml:"timeout"`
}

// CacheConfig names the directories used inside the cache root.
type CacheConfig struct {
	DepsDir         string `yaml:"deps_dir"`
	ManagerCacheDir string `yaml:"manager_cache_dir"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Version: 1,
		Manifest: ManifestConfig{
			File:           "package.json",
			RuntimeField:   "engines.node",
			PrimaryField:   "engines.npm",
			SecondaryField: "engines.yarn",
			Script:         "build",
		},
		Runtime: RuntimeConfig{
			DefaultConstraint: "22.x",
		},
		Resolver: ResolverConfig{
			Backend:  BackendHTTP,
			URL:      "https://nodebin.herokai.com/v1",
			Attempts: 5,
			Timeout:  30 * time.Second,
		},
		Download: DownloadConfig{
			Retries: 3,
			Timeout: 10 * time.Minute,
		},
		Cache: CacheConfig{
			DepsDir:         "node_modules",
			ManagerCacheDir: "yarn",
		},
	}
}

// Load reads the YAML configuration from disk if it exists, otherwise returns
// the default configuration. Environment overrides are applied last.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		contents, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(contents, &cfg); err != nil {
				return Config{}, fmt.Errorf("unmarshal config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromString parses YAML on top of the defaults without consulting the
// environment.
func FromString(s string) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal([]byte(s), &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyDefaults ensures fields fall back to defaults when the YAML omits them.
func (c *Config) ApplyDefaults() {
	defaults := Default()

	if c.Version == 0 {
		c.Version = defaults.Version
	}
	if c.Manifest.File == "" {
		c.Manifest.File = defaults.Manifest.File
	}
	if c.Manifest.RuntimeField == "" {
		c.Manifest.RuntimeField = defaults.Manifest.RuntimeField
	}
	if c.Manifest.PrimaryField == "" {
		c.Manifest.PrimaryField = defaults.Manifest.PrimaryField
	}
	if c.Manifest.SecondaryField == "" {
		c.Manifest.SecondaryField = defaults.Manifest.SecondaryField
	}
	if c.Manifest.Script == "" {
		c.Manifest.Script = defaults.Manifest.Script
	}
	if c.Runtime.DefaultConstraint == "" {
		c.Runtime.DefaultConstraint = defaults.Runtime.DefaultConstraint
	}
	if c.Resolver.Backend == "" {
		c.Resolver.Backend = defaults.Resolver.Backend
	}
	if c.Resolver.URL == "" {
		c.Resolver.URL = defaults.Resolver.URL
	}
	if c.Resolver.Attempts <= 0 {
		c.Resolver.Attempts = defaults.Resolver.Attempts
	}
	if c.Resolver.Timeout <= 0 {
		c.Resolver.Timeout = defaults.Resolver.Timeout
	}
	if c.Download.Retries < 0 {
		c.Download.Retries = defaults.Download.Retries
	}
	if c.Download.Timeout <= 0 {
		c.Download.Timeout = defaults.Download.Timeout
	}
	if c.Cache.DepsDir == "" {
		c.Cache.DepsDir = defaults.Cache.DepsDir
	}
	if c.Cache.ManagerCacheDir == "" {
		c.Cache.ManagerCacheDir = defaults.Cache.ManagerCacheDir
	}
}

// ApplyEnv overrides fields from BUILDPACK_* variables. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if value, ok := lookupTrim(lookup, name); ok && value != "" {
			*dst = value
		}
	}

	str("BUILDPACK_MANIFEST_FILE", &c.Manifest.File)
	str("BUILDPACK_BUILD_SCRIPT", &c.Manifest.Script)
	str("BUILDPACK_RUNTIME_DEFAULT", &c.Runtime.DefaultConstraint)
	str("BUILDPACK_RESOLVER_BACKEND", &c.Resolver.Backend)
	str("BUILDPACK_RESOLVER_URL", &c.Resolver.URL)
	str("BUILDPACK_RESOLVER_INDEX", &c.Resolver.IndexFile)
	str("BUILDPACK_RESOLVER_COMMAND", &c.Resolver.Command)

	if value, ok := lookupTrim(lookup, "BUILDPACK_RESOLVER_ATTEMPTS"); ok && value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("parse BUILDPACK_RESOLVER_ATTEMPTS as int: %w", err)
		}
		c.Resolver.Attempts = parsed
	}
	if value, ok := lookupTrim(lookup, "BUILDPACK_DOWNLOAD_RETRIES"); ok && value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("parse BUILDPACK_DOWNLOAD_RETRIES as int: %w", err)
		}
		c.Download.Retries = parsed
	}
	if value, ok := lookupTrim(lookup, "BUILDPACK_DOWNLOAD_TIMEOUT"); ok && value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("parse BUILDPACK_DOWNLOAD_TIMEOUT as duration: %w", err)
		}
		c.Download.Timeout = parsed
	}
	return nil
}

// Validate reports configuration that cannot drive a build.
func (c Config) Validate() error {
	switch c.Resolver.Backend {
	case BackendHTTP:
		if strings.TrimSpace(c.Resolver.URL) == "" {
			return fmt.Errorf("resolver.url is required for the %s backend", BackendHTTP)
		}
	case BackendIndex:
		if strings.TrimSpace(c.Resolver.IndexFile) == "" {
			return fmt.Errorf("resolver.index_file is required for the %s backend", BackendIndex)
		}
	case BackendCommand:
		if strings.TrimSpace(c.Resolver.Command) == "" {
			return fmt.Errorf("resolver.command is required for the %s backend", BackendCommand)
		}
	default:
		return fmt.Errorf("unknown resolver backend %q", c.Resolver.Backend)
	}
	if strings.Contains(c.Manifest.Script, ".") {
		return fmt.Errorf("manifest.script %q must be a script name, not a path", c.Manifest.Script)
	}
	return nil
}

// ScriptField returns the manifest path of the named build script.
func (c Config) ScriptField() string {
	return "scripts." + c.Manifest.Script
}

// Marshal returns the YAML encoding of the configuration.
func (c Config) Marshal() ([]byte, error) {
	buf, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf, nil
}

func lookupTrim(lookup func(string) (string, bool), name string) (string, bool) {
	value, ok := lookup(name)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(value), true
}
