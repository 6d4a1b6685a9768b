package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"buildpack/internal/cache"
	"buildpack/internal/env"
	"buildpack/internal/paths"
	"buildpack/internal/runner"
	"buildpack/internal/tools"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <build-dir> <cache-dir>",
		Short: "Show installed tools and the dependency cache signature",
		Args:  cobra.ExactArgs(2),
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	layout, _, err := resolveLayout(args[0], args[1], "")
	if err != nil {
		return err
	}

	statuses, err := tools.Detect(cmd.Context(), layout, runner.CmdRunner{}, env.FromOS())
	if err != nil {
		return err
	}
	sig, err := cache.LoadSignature(layout)
	if err != nil {
		return err
	}

	if outputJSON {
		return writeStatusJSON(cmd.OutOrStdout(), layout, statuses, sig)
	}
	writeStatusTable(cmd.OutOrStdout(), layout, statuses, sig)
	return nil
}

func writeStatusTable(out io.Writer, l paths.Layout, statuses []tools.Status, sig *cache.Signature) {
	fmt.Fprintf(out, "Build: %s\n", l.BuildDir)
	fmt.Fprintf(out, "Cache: %s\n\n", l.CacheDir)

	rows := make([]tools.Status, len(statuses))
	copy(rows, statuses)
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Tool < rows[j].Tool
	})

	w := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "TOOL\tSOURCE\tVERSION\tINSTALLED\tPATH")
	for _, st := range rows {
		installed := "no"
		if st.Installed {
			installed = "yes"
		}
		path := st.Path
		if path == "" {
			path = "(missing)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			st.Tool,
			nonEmptyOrDash(string(st.Source)),
			nonEmptyOrDash(st.Version),
			installed,
			path,
		)
	}
	w.Flush()

	for _, st := range rows {
		if st.Error != "" {
			fmt.Fprintf(out, "  error: %s: %s\n", st.Tool, st.Error)
		}
		for _, note := range st.Notes {
			fmt.Fprintf(out, "  note: %s: %s\n", st.Tool, note)
		}
	}

	fmt.Fprintln(out)
	if sig == nil {
		fmt.Fprintln(out, "Cache signature: (none)")
		return
	}
	manager := sig.Manager
	if sig.ManagerVersion != "" {
		manager += " " + sig.ManagerVersion
	}
	fmt.Fprintf(out, "Cache signature: node %s, %s (saved %s)\n",
		nonEmptyOrDash(sig.Runtime),
		nonEmptyOrDash(manager),
		sig.SavedAt.Local().Format(time.RFC3339),
	)
}

func writeStatusJSON(out io.Writer, l paths.Layout, statuses []tools.Status, sig *cache.Signature) error {
	payload := struct {
		Build     string           `json:"build"`
		Cache     string           `json:"cache"`
		Tools     []tools.Status   `json:"tools"`
		Signature *cache.Signature `json:"signature,omitempty"`
	}{
		Build:     l.BuildDir,
		Cache:     l.CacheDir,
		Tools:     statuses,
		Signature: sig,
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode status json: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}

func nonEmptyOrDash(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return value
}
