package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"buildpack/internal/provision"
)

var (
	configPath string
	outputJSON bool
	noProgress bool
	debugLog   bool
)

// Execute runs the root cobra command and exits with the code carried by
// the returned error.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(exitStatus(err, os.Stderr))
	}
}

// reportedError wraps an error the build log has already shown to the user.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// exitStatus prints err once and returns the process exit code for it.
func exitStatus(err error, stderr io.Writer) int {
	var reported *reportedError
	if !errors.As(err, &reported) {
		fmt.Fprintf(stderr, "error: %v\n", err)
	}
	return provision.ExitCode(err)
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "buildpack",
		Short:         "Provision Node.js builds",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a buildpack.yaml (default: <build-dir>/buildpack.yaml)")
	cmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output machine-readable JSON")
	cmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "Disable the interactive progress view")
	cmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "Mirror the build log to stderr")

	cmd.AddCommand(newCompileCmd())
	cmd.AddCommand(newDetectCmd())
	cmd.AddCommand(newResolveCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}
