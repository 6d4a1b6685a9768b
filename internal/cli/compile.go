package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"buildpack/internal/build"
	"buildpack/internal/cache"
	"buildpack/internal/env"
	"buildpack/internal/logx"
	"buildpack/internal/provision"
	"buildpack/internal/resolve"
	"buildpack/internal/runner"
	"buildpack/internal/tools"
	"buildpack/internal/tui"
)

// buildOutputIndent aligns command output under the section headers.
const buildOutputIndent = "       "

func newCompileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compile <build-dir> <cache-dir> [env-dir]",
		Short: "Install Node.js, restore dependencies and run the build script",
		Args:  cobra.RangeArgs(2, 3),
		RunE:  runCompile,
	}
}

type compileJSON struct {
	RunID       string           `json:"run_id"`
	State       provision.State  `json:"state"`
	Runtime     *resolve.Version `json:"runtime,omitempty"`
	ManagerTool string           `json:"manager_tool,omitempty"`
	Manager     *resolve.Version `json:"manager,omitempty"`
	Cache       *cache.Result    `json:"cache,omitempty"`
	Script      string           `json:"script,omitempty"`
	Error       string           `json:"error,omitempty"`
	ExitCode    int              `json:"exit_code"`
}

func runCompile(cmd *cobra.Command, args []string) error {
	envDir := ""
	if len(args) == 3 {
		envDir = args[2]
	}

	layout, cfg, err := resolveLayout(args[0], args[1], envDir)
	if err != nil {
		return err
	}
	if err := layout.EnsureCacheDirs(); err != nil {
		return err
	}

	var mirror io.Writer
	if debugLog {
		mirror = cmd.ErrOrStderr()
	}
	logger, closer, runID, err := logx.New(layout, mirror)
	if err != nil {
		return err
	}
	defer closer.Close()
	logger.Printf("buildpack %s: compile %s (cache %s)", build.Version, layout.BuildDir, layout.CacheDir)

	userEnv, err := env.LoadDir(layout.EnvDir)
	if err != nil {
		return err
	}
	base := env.FromOS().Merge(userEnv)
	logger.Printf("loaded %d variable(s) from env dir", userEnv.Len())

	cmdRunner := runner.CmdRunner{}
	resolver, err := resolve.FromConfig(cfg.Resolver, cmdRunner, logger)
	if err != nil {
		return err
	}

	orch := &provision.Orchestrator{
		Layout:    layout,
		Config:    cfg,
		Resolver:  resolver,
		Installer: tools.NewInstaller(layout, cfg.Download, logger),
		Cache:     cache.NewManager(layout, logger),
		Runner:    cmdRunner,
		Logger:    logger,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	switch tui.DetectMode(cmd.OutOrStdout(), noProgress, outputJSON) {
	case tui.ModeTUI:
		return compileInteractive(ctx, cmd.OutOrStdout(), orch, base)
	case tui.ModeJSON:
		res, runErr := compilePlain(ctx, cmd.ErrOrStderr(), orch, base)
		if err := writeCompileJSON(cmd.OutOrStdout(), runID, res, runErr); err != nil {
			return err
		}
		return runErr
	default:
		_, err := compilePlain(ctx, cmd.OutOrStdout(), orch, base)
		return err
	}
}

// compilePlain streams the build log to out. A failure is written to the
// log, so the returned error is marked as reported.
func compilePlain(ctx context.Context, out io.Writer, orch *provision.Orchestrator, base env.Environment) (provision.Result, error) {
	reporter := tui.NewPlainReporter(out)
	lines := tui.IndentWriter(out, buildOutputIndent)
	orch.Reporter = reporter
	orch.Stdout = lines
	orch.Stderr = lines
	orch.Resolver.OnRetry = retryWarning(reporter)

	res, err := orch.Run(ctx, base)
	lines.Flush()
	if err != nil {
		reporter.Failure(err)
		return res, &reportedError{err: err}
	}
	return res, nil
}

// compileInteractive renders the step table while the build runs on a
// separate goroutine.
func compileInteractive(ctx context.Context, out io.Writer, orch *provision.Orchestrator, base env.Environment) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := tui.NewStepModel("Building " + filepath.Base(orch.Layout.BuildDir))
	var res provision.Result
	err := tui.RunWithWork(out, model, cancel, func(send func(tea.Msg)) error {
		reporter := tui.NewStepReporter(send)
		lines := tui.NewLineWriter(func(line string) {
			send(tui.OutputMsg{Line: line})
		})
		defer lines.Flush()

		orch.Reporter = reporter
		orch.Stdout = lines
		orch.Stderr = lines
		orch.Resolver.OnRetry = retryWarning(reporter)

		var runErr error
		res, runErr = orch.Run(ctx, base)
		return runErr
	})
	if err != nil {
		if errors.Is(err, tui.ErrInterrupted) {
			orch.Logger.Printf("interrupted in state %s", res.State)
		}
		return err
	}

	summary := fmt.Sprintf("Built with node %s and %s", res.Runtime.Number, res.ManagerTool())
	if res.Manager.Number != "" {
		summary += " " + res.Manager.Number
	}
	fmt.Fprintln(out, tui.SectionStyle.Render(summary))
	return nil
}

func retryWarning(r provision.Reporter) func(int, error, time.Duration) {
	return func(attempt int, err error, wait time.Duration) {
		r.Warn("Resolution attempt %d failed (%v), retrying in %s", attempt, err, wait)
	}
}

func writeCompileJSON(out io.Writer, runID string, res provision.Result, runErr error) error {
	payload := compileJSON{
		RunID:    runID,
		State:    res.State,
		Script:   res.Script,
		ExitCode: provision.ExitCode(runErr),
	}
	if res.Runtime.Number != "" {
		payload.Runtime = &res.Runtime
	}
	if res.State >= provision.StateToolchainSelected && !res.State.Failed() {
		payload.ManagerTool = res.ManagerTool()
		if res.Manager.Number != "" {
			payload.Manager = &res.Manager
		}
	}
	if res.Cache.Action != "" {
		payload.Cache = &res.Cache
	}
	if runErr != nil {
		payload.Error = runErr.Error()
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}
