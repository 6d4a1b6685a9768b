package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"buildpack/internal/config"
	"buildpack/internal/paths"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config [build-dir]",
		Short: "Print the effective configuration in YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runConfigShow,
	}
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	buildDir := "."
	if len(args) == 1 {
		buildDir = args[0]
	}

	cfg, err := loadConfig(buildDir)
	if err != nil {
		return err
	}

	data, err := cfg.Marshal()
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), string(data))
	if len(data) == 0 || data[len(data)-1] != '\n' {
		fmt.Fprintln(cmd.OutOrStdout())
	}
	return nil
}

// loadConfig reads --config when given, else buildpack.yaml in buildDir.
// A missing file yields the defaults plus environment overrides.
func loadConfig(buildDir string) (config.Config, error) {
	path := configPath
	if path == "" {
		path = filepath.Join(buildDir, config.FileName)
	} else {
		exists, err := paths.FileExists(path)
		if err != nil {
			return config.Config{}, fmt.Errorf("stat config: %w", err)
		}
		if !exists {
			return config.Config{}, fmt.Errorf("config file does not exist: %s", path)
		}
	}
	return config.Load(path)
}

// resolveLayout builds the layout for the given directories with the
// effective configuration applied.
func resolveLayout(buildDir, cacheDir, envDir string) (paths.Layout, config.Config, error) {
	l, err := paths.Resolve(buildDir, cacheDir, envDir)
	if err != nil {
		return paths.Layout{}, config.Config{}, err
	}
	exists, err := paths.DirExists(l.BuildDir)
	if err != nil {
		return paths.Layout{}, config.Config{}, fmt.Errorf("stat build dir: %w", err)
	}
	if !exists {
		return paths.Layout{}, config.Config{}, fmt.Errorf("build directory does not exist: %s", l.BuildDir)
	}

	cfg, err := loadConfig(l.BuildDir)
	if err != nil {
		return paths.Layout{}, config.Config{}, err
	}
	return paths.ApplyConfig(l, cfg), cfg, nil
}
