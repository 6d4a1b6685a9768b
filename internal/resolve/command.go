package resolve

import (
	"context"
	"errors"
	"strings"

	"buildpack/internal/runner"
)

// CommandBackend runs an external resolver binary as
// "<command> <tool> <constraint>", expecting "<version> <url>" on stdout. Its
// failures are untagged text, so they go through ClassifyMessage.
type CommandBackend struct {
	Command string
	Runner  runner.Runner
}

func (b *CommandBackend) Resolve(ctx context.Context, tool, constraint string) (Version, error) {
	res, err := b.Runner.Run(ctx, b.Command, []string{tool, constraint}, runner.RunOptions{})
	if err != nil {
		msg := strings.TrimSpace(string(res.Stderr))
		if msg == "" {
			msg = strings.TrimSpace(string(res.Stdout))
		}
		if msg == "" {
			msg = err.Error()
		}
		return Version{}, errors.New(firstLine(msg))
	}
	return parseAnswer(strings.TrimSpace(string(res.Stdout)))
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return strings.TrimSpace(text[:idx])
	}
	return text
}
