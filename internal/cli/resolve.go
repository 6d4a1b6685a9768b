package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"buildpack/internal/logx"
	"buildpack/internal/provision"
	"buildpack/internal/resolve"
	"buildpack/internal/runner"
	"buildpack/internal/tools"
	"buildpack/internal/tui"
)

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <tool> <constraint>",
		Short: "Resolve a version constraint without installing anything",
		Long: "Resolve a version constraint for node, npm or yarn using the configured backend.\n" +
			"Transient backend failures are retried with backoff.",
		Args: cobra.ExactArgs(2),
		RunE: runResolve,
	}
}

type resolveJSON struct {
	Tool       string `json:"tool"`
	Constraint string `json:"constraint"`
	Version    string `json:"version,omitempty"`
	URL        string `json:"url,omitempty"`
	Checksum   string `json:"sha256,omitempty"`
	Attempts   int    `json:"attempts"`
	Outcome    string `json:"outcome"`
	Reason     string `json:"reason,omitempty"`
	Error      string `json:"error,omitempty"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	tool := strings.ToLower(strings.TrimSpace(args[0]))
	constraint := strings.TrimSpace(args[1])
	if _, ok := tools.Definition(tool); !ok {
		return fmt.Errorf("unknown tool: %s (known: %s)", tool, strings.Join(tools.KnownTools(), ", "))
	}

	cfg, err := loadConfig(".")
	if err != nil {
		return err
	}

	logger := logx.Discard()
	if debugLog {
		logger = log.New(cmd.ErrOrStderr(), "", log.LstdFlags|log.Lmicroseconds)
	}

	resolver, err := resolve.FromConfig(cfg.Resolver, runner.CmdRunner{}, logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var status *tui.StatusWriter
	if !outputJSON && isTerminal(cmd.ErrOrStderr()) {
		status = tui.NewStatusWriter(cmd.ErrOrStderr(), fmt.Sprintf("Resolving %s %s", tool, constraint))
		resolver.OnRetry = status.Retry
	} else if !outputJSON {
		errOut := cmd.ErrOrStderr()
		resolver.OnRetry = func(attempt int, err error, wait time.Duration) {
			fmt.Fprintf(errOut, "attempt %d failed (%v), retrying in %s\n", attempt, err, wait)
		}
	}

	out := resolver.Resolve(ctx, tool, constraint)
	var resolveErr error
	if !out.OK() {
		resolveErr = provision.ResolutionError(tool, constraint, out, resolver.Explain(ctx, tool, constraint))
	}
	if status != nil {
		status.Stop()
	}

	if outputJSON {
		payload := resolveJSON{
			Tool:       tool,
			Constraint: constraint,
			Version:    out.Version.Number,
			URL:        out.Version.URL,
			Checksum:   out.Version.Checksum,
			Attempts:   out.Attempts,
			Outcome:    out.Kind.String(),
		}
		if resolveErr != nil {
			payload.Reason = out.Reason.String()
			payload.Error = resolveErr.Error()
		}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return resolveErr
	}

	if resolveErr != nil {
		return resolveErr
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", out.Version.Number, out.Version.URL)
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return tui.DetectMode(f, noProgress, false) == tui.ModeTUI
}
