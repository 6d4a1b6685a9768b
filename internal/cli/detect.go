package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"buildpack/internal/paths"
	"buildpack/internal/provision"
)

// detectName is printed when the build directory holds a manifest.
const detectName = "Node.js"

func newDetectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect <build-dir>",
		Short: "Report whether the build directory is a Node.js project",
		Args:  cobra.ExactArgs(1),
		RunE:  runDetect,
	}
}

func runDetect(cmd *cobra.Command, args []string) error {
	buildDir, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolve build dir: %w", err)
	}
	cfg, err := loadConfig(buildDir)
	if err != nil {
		return err
	}

	manifestFile := filepath.Join(buildDir, cfg.Manifest.File)
	exists, err := paths.FileExists(manifestFile)
	if err != nil {
		return fmt.Errorf("inspect manifest: %w", err)
	}
	if !exists {
		return &provision.PreconditionError{
			State:   provision.StateNoManifest,
			Message: fmt.Sprintf("no manifest: %s not found in %s", cfg.Manifest.File, buildDir),
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), detectName)
	return nil
}
