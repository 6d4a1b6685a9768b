package tools

import (
	"context"
	"fmt"
	"strings"

	"buildpack/internal/runner"
)

// readVersion runs the executable's version switch and returns the first
// line of its output without a leading "v".
func readVersion(ctx context.Context, r runner.Runner, def ToolDefinition, path string, environ []string) (string, error) {
	res, err := r.Run(ctx, path, []string{def.VersionSwitch}, runner.RunOptions{Env: environ})
	if err != nil {
		return "", fmt.Errorf("%s version: %w", def.Name, err)
	}
	line := firstLine(strings.TrimSpace(string(res.Stdout)))
	if line == "" {
		return "", fmt.Errorf("%s version: empty output", def.Name)
	}
	return strings.TrimPrefix(line, "v"), nil
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return text[:idx]
	}
	return text
}
