package resolve

import (
	"fmt"
	"log"

	"buildpack/internal/config"
	"buildpack/internal/runner"
)

// NewBackend builds the backend selected by cfg.
func NewBackend(cfg config.ResolverConfig, r runner.Runner) (Backend, error) {
	switch cfg.Backend {
	case config.BackendHTTP:
		return NewHTTPBackend(cfg.URL, cfg.Timeout), nil
	case config.BackendIndex:
		return NewIndexBackend(cfg.IndexFile), nil
	case config.BackendCommand:
		if r == nil {
			r = runner.CmdRunner{}
		}
		return &CommandBackend{Command: cfg.Command, Runner: r}, nil
	default:
		return nil, fmt.Errorf("unknown resolver backend %q", cfg.Backend)
	}
}

// FromConfig returns a Resolver over the configured backend and retry budget.
func FromConfig(cfg config.ResolverConfig, r runner.Runner, logger *log.Logger) (*Resolver, error) {
	backend, err := NewBackend(cfg, r)
	if err != nil {
		return nil, err
	}
	resolver := New(backend, logger)
	if cfg.Attempts > 0 {
		resolver.Attempts = cfg.Attempts
	}
	return resolver, nil
}
